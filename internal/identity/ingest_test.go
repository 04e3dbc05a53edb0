package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizops/internal/authz"
	"github.com/odyssey-erp/bizops/internal/platform/httpx"
)

type storedUser struct {
	User
	lastEvent string
	deleted   bool
}

type memoryState struct {
	events map[string]string
	users  map[string]storedUser
}

func (s memoryState) clone() memoryState {
	out := memoryState{events: map[string]string{}, users: map[string]storedUser{}}
	for k, v := range s.events {
		out.events[k] = v
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	return out
}

type memoryStore struct {
	state      memoryState
	failUpsert bool
	writes     int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{state: memoryState{events: map[string]string{}, users: map[string]storedUser{}}}
}

type memoryTx struct {
	store *memoryStore
	state memoryState
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	tx := &memoryTx{store: m, state: m.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

func (t *memoryTx) RecordEvent(_ context.Context, eventID, _ string) (bool, error) {
	if _, ok := t.state.events[eventID]; ok {
		return false, nil
	}
	t.store.writes++
	t.state.events[eventID] = "pending"
	return true, nil
}

func (t *memoryTx) UpsertUser(_ context.Context, u User, eventID string) error {
	if t.store.failUpsert {
		return errors.New("upsert failed")
	}
	t.store.writes++
	t.state.users[u.ClerkUserID] = storedUser{User: u, lastEvent: eventID}
	return nil
}

func (t *memoryTx) SoftDeleteUser(_ context.Context, clerkUserID, eventID string) error {
	u, ok := t.state.users[clerkUserID]
	if !ok {
		return nil
	}
	t.store.writes++
	u.deleted, u.lastEvent = true, eventID
	t.state.users[clerkUserID] = u
	return nil
}

func (t *memoryTx) MarkProcessed(_ context.Context, eventID string) error {
	t.store.writes++
	t.state.events[eventID] = "processed"
	return nil
}

var testNow = time.Unix(1700000000, 0)

const userCreated = `{"type":"user.created","data":{"id":"user_1","first_name":"Ada","email_addresses":[{"id":"e1","email_address":"first@example.com"},{"id":"e2","email_address":"ada@example.com"}],"primary_email_address_id":"e2"}}`

const userDeleted = `{"type":"user.deleted","data":{"id":"user_1","deleted":true}}`

func newIngest(t *testing.T, store Store, reg prometheus.Registerer) (*Service, *Verifier) {
	t.Helper()
	v := verifierAt(t, testNow)
	var metrics *Metrics
	if reg != nil {
		metrics = NewMetrics(reg)
	}
	return NewService(v, store, metrics, nil), v
}

func signed(v *Verifier, id, body string) http.Header {
	return headers(id, testNow, v.Sign(id, testNow, []byte(body)))
}

func TestIngestUpsertsUserOnce(t *testing.T) {
	store := newMemoryStore()
	reg := prometheus.NewRegistry()
	svc, v := newIngest(t, store, reg)

	res, err := svc.Ingest(context.Background(), []byte(userCreated), signed(v, "evt_1", userCreated))
	require.NoError(t, err)
	assert.Equal(t, Result{Received: true}, res)
	u := store.state.users["user_1"]
	require.NotNil(t, u.Email)
	assert.Equal(t, "ada@example.com", *u.Email)
	assert.Equal(t, "evt_1", u.lastEvent)
	assert.Equal(t, "processed", store.state.events["evt_1"])
	writes := store.writes

	res, err = svc.Ingest(context.Background(), []byte(userCreated), signed(v, "evt_1", userCreated))
	require.NoError(t, err)
	assert.Equal(t, Result{Received: true, Duplicate: true}, res)
	assert.Equal(t, writes, store.writes)

	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.deliveries.WithLabelValues(EventUserCreated, outcomeProcessed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.deliveries.WithLabelValues(EventUserCreated, outcomeDuplicate)))
}

func TestIngestSoftDeletes(t *testing.T) {
	store := newMemoryStore()
	svc, v := newIngest(t, store, nil)
	_, err := svc.Ingest(context.Background(), []byte(userCreated), signed(v, "evt_1", userCreated))
	require.NoError(t, err)

	_, err = svc.Ingest(context.Background(), []byte(userDeleted), signed(v, "evt_2", userDeleted))
	require.NoError(t, err)
	u, ok := store.state.users["user_1"]
	require.True(t, ok)
	assert.True(t, u.deleted)
	assert.Equal(t, "evt_2", u.lastEvent)

	_, err = svc.Ingest(context.Background(), []byte(userCreated), signed(v, "evt_3", userCreated))
	require.NoError(t, err)
	assert.False(t, store.state.users["user_1"].deleted)
}

func TestIngestFailureLeavesEventRetriable(t *testing.T) {
	store := newMemoryStore()
	store.failUpsert = true
	svc, v := newIngest(t, store, nil)

	_, err := svc.Ingest(context.Background(), []byte(userCreated), signed(v, "evt_1", userCreated))
	require.Error(t, err)
	assert.Empty(t, store.state.events)
	assert.Empty(t, store.state.users)

	store.failUpsert = false
	res, err := svc.Ingest(context.Background(), []byte(userCreated), signed(v, "evt_1", userCreated))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Contains(t, store.state.users, "user_1")
}

func TestIngestUnknownTypeIsRecorded(t *testing.T) {
	store := newMemoryStore()
	svc, v := newIngest(t, store, nil)
	body := `{"type":"session.created","data":{"id":"sess_1"}}`

	_, err := svc.Ingest(context.Background(), []byte(body), signed(v, "evt_9", body))
	require.NoError(t, err)
	assert.Equal(t, "processed", store.state.events["evt_9"])
	assert.Empty(t, store.state.users)
}

func TestIngestRejectsBeforeWriting(t *testing.T) {
	store := newMemoryStore()
	svc, v := newIngest(t, store, nil)

	_, err := svc.Ingest(context.Background(), []byte(userCreated), signed(v, "evt_1", `{"type":"other"}`))
	var sigErr *SignatureError
	require.ErrorAs(t, err, &sigErr)

	_, err = svc.Ingest(context.Background(), []byte(`not json`), signed(v, "evt_2", `not json`))
	require.Error(t, err)
	assert.Zero(t, store.writes)

	_, err = NewService(nil, store, nil, nil).Ingest(context.Background(), []byte(userCreated), http.Header{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestIngestRequiresUserID(t *testing.T) {
	store := newMemoryStore()
	reg := prometheus.NewRegistry()
	svc, v := newIngest(t, store, reg)

	for _, body := range []string{
		`{"type":"user.created","data":{"first_name":"Ghost"}}`,
		`{"type":"user.updated","data":{"id":"  "}}`,
	} {
		_, err := svc.Ingest(context.Background(), []byte(body), signed(v, "evt_1", body))
		var vErr *httpx.ValidationError
		require.ErrorAs(t, err, &vErr, body)
		assert.Contains(t, vErr.Fields, "data.id")
	}
	assert.Zero(t, store.writes)
	assert.Empty(t, store.state.events)
	assert.Empty(t, store.state.users)
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.deliveries.WithLabelValues(EventUserCreated, outcomeRejected)))

	_, err := svc.Ingest(context.Background(), []byte(userCreated), signed(v, "evt_1", userCreated))
	require.NoError(t, err)
	assert.Contains(t, store.state.users, "user_1")
}

type memorySyncStore struct {
	bindings map[string][]authz.Role
	fail     bool
}

type memorySyncTx struct {
	staged map[string][]authz.Role
	fail   bool
}

func (m *memorySyncStore) WithTx(ctx context.Context, fn func(context.Context, authz.SyncTx) error) error {
	staged := map[string][]authz.Role{}
	for k, v := range m.bindings {
		staged[k] = append([]authz.Role(nil), v...)
	}
	if err := fn(ctx, &memorySyncTx{staged: staged, fail: m.fail}); err != nil {
		return err
	}
	m.bindings = staged
	return nil
}

func (t *memorySyncTx) DeleteForPrincipal(_ context.Context, principalID string) error {
	for k := range t.staged {
		if strings.HasSuffix(k, "/"+principalID) {
			delete(t.staged, k)
		}
	}
	return nil
}

func (t *memorySyncTx) UpsertBinding(_ context.Context, tenantID, principalID string, role authz.Role, _ string) error {
	if t.fail {
		return errors.New("write failed")
	}
	key := tenantID + "/" + principalID
	t.staged[key] = append(t.staged[key], role)
	return nil
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	h.MountRoutes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWebhookHandlerStatuses(t *testing.T) {
	store := newMemoryStore()
	svc, v := newIngest(t, store, nil)
	h := NewHandler(svc, nil, "", nil)

	post := func(body string, hdr http.Header) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", strings.NewReader(body))
		for k, vals := range hdr {
			req.Header[k] = vals
		}
		return serve(h, req)
	}

	rec := post(userCreated, http.Header{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing required webhook headers")

	rec = post(userCreated, signed(v, "evt_1", "tampered"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(userCreated, signed(v, "evt_1", userCreated))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	rec = post(userCreated, signed(v, "evt_1", userCreated))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true,"duplicate":true}`, rec.Body.String())

	store.failUpsert = true
	rec = post(userCreated, signed(v, "evt_2", userCreated))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	unconfigured := NewHandler(NewService(nil, store, nil, nil), nil, "", nil)
	rec = serve(unconfigured, httptest.NewRequest(http.MethodPost, "/webhooks/clerk", strings.NewReader(userCreated)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRoleSyncHandler(t *testing.T) {
	sync := &memorySyncStore{bindings: map[string][]authz.Role{"t1/u1": {authz.RoleAdmin}, "t2/u1": {authz.RoleViewer}}}
	h := NewHandler(nil, authz.NewSyncer(sync), "s3cret", nil)

	post := func(secret, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/clerk/sync-roles", strings.NewReader(body))
		if secret != "" {
			req.Header.Set(HeaderRoleSyncSecret, secret)
		}
		return serve(h, req)
	}
	body := `{"clerkUserId":"u1","tenantRoles":[{"tenantId":"t1","roles":["viewer"]}]}`

	assert.Equal(t, http.StatusUnauthorized, post("", body).Code)
	assert.Equal(t, http.StatusUnauthorized, post("wrong", body).Code)

	rec := post("s3cret", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, map[string][]authz.Role{"t1/u1": {authz.RoleViewer}}, sync.bindings)

	rec = post("s3cret", `{"clerkUserId":"u1","tenantRoles":[{"tenantId":"t1","roles":["root"]}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string][]authz.Role{"t1/u1": {authz.RoleViewer}}, sync.bindings)

	rec = post("s3cret", `{"tenantRoles":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"clerkUserId"`)

	rec = post("s3cret", `{"clerkUserId":"u1","tenantRoles":[{"roles":["admin"]}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tenantRoles[0].tenantId"`)
	assert.Equal(t, map[string][]authz.Role{"t1/u1": {authz.RoleViewer}}, sync.bindings)

	sync.fail = true
	rec = post("s3cret", `{"clerkUserId":"u1","tenantRoles":[{"tenantId":"t3","roles":["owner"]}]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string][]authz.Role{"t1/u1": {authz.RoleViewer}}, sync.bindings)

	unconfigured := NewHandler(nil, authz.NewSyncer(sync), "", nil)
	rec = serve(unconfigured, httptest.NewRequest(http.MethodPost, "/clerk/sync-roles", strings.NewReader(body)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
