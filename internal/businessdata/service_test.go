package businessdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizops/internal/authz"
	"github.com/odyssey-erp/bizops/internal/authz/authztest"
	"github.com/odyssey-erp/bizops/internal/platform/httpx"
)

type memoryRepo struct {
	rows map[string][]BusinessData
	err  error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[string][]BusinessData)}
}

func (m *memoryRepo) Latest(_ context.Context, tenantID string) (BusinessData, error) {
	if m.err != nil {
		return BusinessData{}, m.err
	}
	rows := m.rows[tenantID]
	if len(rows) == 0 {
		return BusinessData{}, httpx.ErrNotFound
	}
	return rows[len(rows)-1], nil
}

func (m *memoryRepo) Insert(_ context.Context, tenantID string, in Input) (BusinessData, error) {
	if m.err != nil {
		return BusinessData{}, m.err
	}
	now := time.Now()
	b := BusinessData{
		ID:                   uuid.NewString(),
		WholesalePricePerOz:  in.WholesalePricePerOz,
		TargetProfitPerMonth: in.TargetProfitPerMonth,
		OperatingExpenses:    in.OperatingExpenses,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	m.rows[tenantID] = append(m.rows[tenantID], b)
	return b, nil
}

func (m *memoryRepo) Update(_ context.Context, tenantID, id string, upd Update) (BusinessData, error) {
	for i, b := range m.rows[tenantID] {
		if b.ID != id {
			continue
		}
		if upd.WholesalePricePerOz != nil {
			b.WholesalePricePerOz = *upd.WholesalePricePerOz
		}
		if upd.TargetProfitPerMonth != nil {
			b.TargetProfitPerMonth = *upd.TargetProfitPerMonth
		}
		if upd.OperatingExpenses != nil {
			b.OperatingExpenses = *upd.OperatingExpenses
		}
		m.rows[tenantID][i] = b
		return b, nil
	}
	return BusinessData{}, httpx.ErrNotFound
}

func (m *memoryRepo) LatestOrInsert(ctx context.Context, tenantID string, defaults Input) (BusinessData, error) {
	b, err := m.Latest(ctx, tenantID)
	if errors.Is(err, httpx.ErrNotFound) {
		return m.Insert(ctx, tenantID, defaults)
	}
	return b, err
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestInitializeDefaultsOnce(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, authztest.Guard("t1", "u1", authz.RoleAdmin), nil)
	ctx := context.Background()

	first, err := svc.InitializeDefaults(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.True(t, first.WholesalePricePerOz.Equal(dec(100)))
	assert.True(t, first.TargetProfitPerMonth.Equal(dec(2000)))
	assert.True(t, first.OperatingExpenses.Equal(dec(500)))

	second, err := svc.InitializeDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.rows["t1"], 1)
}

func TestGetReturnsLatestForTenantOnly(t *testing.T) {
	repo := newMemoryRepo()
	ctx := context.Background()
	_, _ = repo.Insert(ctx, "t2", Input{WholesalePricePerOz: dec(7)})

	svc := NewService(repo, authztest.Guard("t1", "u1", authz.RoleViewer), nil)
	b, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, b)

	_, _ = repo.Insert(ctx, "t1", Input{WholesalePricePerOz: dec(1)})
	_, _ = repo.Insert(ctx, "t1", Input{WholesalePricePerOz: dec(2)})
	b, err = svc.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, b.WholesalePricePerOz.Equal(dec(2)))
}

func TestMutationsRequireBusinessDataWrite(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, authztest.Guard("t1", "u1", authz.RoleOperator), nil)
	ctx := context.Background()

	_, err := svc.Save(ctx, Defaults())
	var authzErr *authz.AuthorizationError
	require.ErrorAs(t, err, &authzErr)

	_, err = svc.InitializeDefaults(ctx)
	require.ErrorAs(t, err, &authzErr)
	assert.Empty(t, repo.rows)

	_, err = NewService(repo, authztest.Anonymous(), nil).Get(ctx)
	var authnErr *authz.AuthenticationError
	require.ErrorAs(t, err, &authnErr)
}

func TestSaveValidatesAndNeutralisesFailures(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, authztest.Guard("t1", "u1", authz.RoleOwner), nil)
	ctx := context.Background()

	_, err := svc.Save(ctx, Input{WholesalePricePerOz: dec(-1)})
	var verr *httpx.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "wholesalePricePerOz")

	repo.err = errors.New("disk full")
	b, err := svc.Save(ctx, Defaults())
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestUpdateUnknownIDIsNil(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, authztest.Guard("t1", "u1", authz.RoleOwner), nil)
	ctx := context.Background()
	price := dec(150)

	b, err := svc.Update(ctx, "not-an-id", Update{WholesalePricePerOz: &price})
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = svc.Update(ctx, uuid.NewString(), Update{WholesalePricePerOz: &price})
	require.NoError(t, err)
	assert.Nil(t, b)

	saved, err := svc.Save(ctx, Defaults())
	require.NoError(t, err)
	b, err = svc.Update(ctx, saved.ID, Update{WholesalePricePerOz: &price})
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, b.WholesalePricePerOz.Equal(price))
	assert.True(t, b.OperatingExpenses.Equal(dec(500)))
}

func TestHandlerStatuses(t *testing.T) {
	repo := newMemoryRepo()
	router := chi.NewRouter()
	NewHandler(NewService(repo, authztest.Guard("t1", "u1", authz.RoleAdmin), nil), nil).MountRoutes(router)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/business-data", "").Code)
	assert.Equal(t, http.StatusCreated, do(http.MethodPost, "/business-data",
		`{"wholesalePricePerOz":120,"targetProfitPerMonth":1000,"operatingExpenses":"300.50"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/business-data", `{"unknown":1}`).Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodPatch, "/business-data/"+uuid.NewString(), `{"operatingExpenses":1}`).Code)

	rec := do(http.MethodGet, "/business-data", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "300.5")

	repo.err = errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, do(http.MethodPost, "/business-data/initialize", "").Code)
}
