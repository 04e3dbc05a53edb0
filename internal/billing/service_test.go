package billing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizops/internal/authz"
	"github.com/odyssey-erp/bizops/internal/authz/authztest"
	"github.com/odyssey-erp/bizops/internal/customers"
	"github.com/odyssey-erp/bizops/internal/inventory"
	"github.com/odyssey-erp/bizops/internal/platform/httpx"
)

type state struct {
	transactions []Transaction
	items        map[string]inventory.Item
	customers    map[string]customers.Customer
	accounts     map[string]Account
}

func (s state) clone() state {
	out := state{
		transactions: append([]Transaction(nil), s.transactions...),
		items:        map[string]inventory.Item{},
		customers:    map[string]customers.Customer{},
		accounts:     map[string]Account{},
	}
	for k, v := range s.items {
		out.items[k] = v
	}
	for k, v := range s.customers {
		out.customers[k] = v
	}
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	return out
}

type memoryRepo struct {
	state           state
	failInventory   bool
	failCreditWrite bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: state{
		items:     map[string]inventory.Item{},
		customers: map[string]customers.Customer{},
		accounts:  map[string]Account{},
	}}
}

type memoryTx struct {
	repo  *memoryRepo
	state state
}

type memoryInventory struct{ tx *memoryTx }

type memoryCustomers struct{ tx *memoryTx }

func (r *memoryRepo) WithTx(ctx context.Context, _ string, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: r, state: r.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.state = tx.state
	return nil
}

func (r *memoryRepo) ListTransactions(context.Context, string) ([]Transaction, error) {
	return append([]Transaction(nil), r.state.transactions...), nil
}

func (r *memoryRepo) InventoryItem(_ context.Context, _, id string) (inventory.Item, error) {
	item, ok := r.state.items[id]
	if !ok {
		return inventory.Item{}, httpx.ErrNotFound
	}
	return item, nil
}

func (r *memoryRepo) ListAccounts(context.Context, string) ([]Account, error) {
	var out []Account
	for _, a := range r.state.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (r *memoryRepo) InsertAccount(_ context.Context, _ string, in AccountInput) (Account, error) {
	a := Account{ID: uuid.NewString(), Name: in.Name, Type: in.Type, Balance: in.Balance, Description: in.Description}
	r.state.accounts[a.ID] = a
	return a, nil
}

func (r *memoryRepo) UpdateAccount(_ context.Context, _, id string, upd AccountUpdate) (Account, error) {
	a, ok := r.state.accounts[id]
	if !ok {
		return Account{}, httpx.ErrNotFound
	}
	if upd.Name != nil {
		a.Name = *upd.Name
	}
	if upd.Balance != nil {
		a.Balance = *upd.Balance
	}
	r.state.accounts[id] = a
	return a, nil
}

func (r *memoryRepo) DeleteAccount(_ context.Context, _, id string) (bool, error) {
	_, ok := r.state.accounts[id]
	delete(r.state.accounts, id)
	return ok, nil
}

func (tx *memoryTx) InsertTransaction(_ context.Context, in TransactionInput) (Transaction, error) {
	if _, ok := tx.state.items[in.InventoryID]; in.InventoryID != "" && !ok {
		return Transaction{}, errors.New("transactions_inventory_fk")
	}
	if _, ok := tx.state.customers[in.CustomerID]; in.CustomerID != "" && !ok {
		return Transaction{}, errors.New("transactions_customer_fk")
	}
	t := Transaction{ID: uuid.NewString(), Date: in.Date, Type: in.Type, InventoryName: in.InventoryName,
		QuantityGrams: in.QuantityGrams, TotalPrice: in.TotalPrice, PaymentMethod: in.PaymentMethod, CustomerName: in.CustomerName}
	if in.InventoryID != "" {
		t.InventoryID = &in.InventoryID
	}
	if in.CustomerID != "" {
		t.CustomerID = &in.CustomerID
	}
	tx.state.transactions = append(tx.state.transactions, t)
	return t, nil
}

func (tx *memoryTx) Inventory() inventory.TxRepository { return memoryInventory{tx} }

func (tx *memoryTx) Customers() customers.TxRepository { return memoryCustomers{tx} }

func (m memoryInventory) GetForUpdate(_ context.Context, id string) (inventory.Item, error) {
	item, ok := m.tx.state.items[id]
	if !ok {
		return inventory.Item{}, httpx.ErrNotFound
	}
	return item, nil
}

func (m memoryInventory) Save(_ context.Context, item inventory.Item) (inventory.Item, error) {
	if m.tx.repo.failInventory {
		return inventory.Item{}, errors.New("inventory write failed")
	}
	m.tx.state.items[item.ID] = item
	return item, nil
}

func (m memoryCustomers) GetForUpdate(_ context.Context, id string) (customers.Customer, error) {
	c, ok := m.tx.state.customers[id]
	if !ok {
		return customers.Customer{}, httpx.ErrNotFound
	}
	return c, nil
}

func (m memoryCustomers) SetBalance(_ context.Context, id string, owed decimal.Decimal, status customers.Status) error {
	if m.tx.repo.failCreditWrite {
		return errors.New("balance write failed")
	}
	c := m.tx.state.customers[id]
	c.AmountOwed, c.Status = owed, status
	m.tx.state.customers[id] = c
	return nil
}

func (m memoryCustomers) InsertPayment(context.Context, string, customers.PaymentInput) (customers.Payment, error) {
	return customers.Payment{}, errors.New("not used")
}

func (m memoryCustomers) DeletePayments(context.Context, string) error { return errors.New("not used") }

func (m memoryCustomers) Delete(context.Context, string) (bool, error) {
	return false, errors.New("not used")
}

func seed(repo *memoryRepo) (itemID, customerID string) {
	item := inventory.NewItem(inventory.Input{Name: "Blend", QuantityG: d("100"), CostPerOz: d("28.3495")})
	item.ID = uuid.NewString()
	repo.state.items[item.ID] = item
	c := customers.Customer{ID: uuid.NewString(), Name: "Alice", AmountOwed: d("10"), Status: customers.StatusPartial}
	repo.state.customers[c.ID] = c
	return item.ID, c.ID
}

func creditSale(itemID, customerID string) TransactionInput {
	return TransactionInput{
		Type:          TypeSale,
		InventoryID:   itemID,
		QuantityGrams: d("40"),
		PricePerGram:  d("2"),
		TotalPrice:    d("80"),
		PaymentMethod: PaymentMethodCredit,
		CustomerID:    customerID,
	}
}

func TestCreditSaleAppliesBothSideEffects(t *testing.T) {
	repo := newMemoryRepo()
	itemID, customerID := seed(repo)
	svc := NewService(repo, authztest.Guard("t1", "u1", authz.RoleOperator), nil)

	tx, err := svc.CreateTransaction(context.Background(), creditSale(itemID, customerID))
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, "Blend", tx.InventoryName)
	assert.Equal(t, "Alice", tx.CustomerName)
	assert.False(t, tx.Date.IsZero())

	item := repo.state.items[itemID]
	assert.True(t, item.QuantityG.Equal(d("60")))
	assert.True(t, item.TotalCost.Equal(item.QuantityOz.Mul(item.CostPerOz)))

	c := repo.state.customers[customerID]
	assert.True(t, c.AmountOwed.Equal(d("90")))
	assert.Equal(t, customers.StatusUnpaid, c.Status)
}

func TestSaleFloorsStockAtZero(t *testing.T) {
	repo := newMemoryRepo()
	itemID, _ := seed(repo)
	svc := NewService(repo, authztest.Guard("t1", "u1", authz.RoleOperator), nil)

	in := TransactionInput{Type: TypeSale, InventoryID: itemID, QuantityGrams: d("250"), TotalPrice: d("500"), PaymentMethod: "cash"}
	_, err := svc.CreateTransaction(context.Background(), in)
	require.NoError(t, err)
	item := repo.state.items[itemID]
	assert.True(t, item.QuantityG.IsZero())
	assert.True(t, item.QuantityOz.IsZero())
	assert.True(t, item.TotalCost.IsZero())
}

func TestInventoryFailureRollsBackTransaction(t *testing.T) {
	repo := newMemoryRepo()
	itemID, customerID := seed(repo)
	repo.failInventory = true
	svc := NewService(repo, authztest.Guard("t1", "u1", authz.RoleOperator), nil)

	tx, err := svc.CreateTransaction(context.Background(), creditSale(itemID, customerID))
	require.NoError(t, err)
	assert.Nil(t, tx)
	assert.Empty(t, repo.state.transactions)
	assert.True(t, repo.state.items[itemID].QuantityG.Equal(d("100")))
	assert.True(t, repo.state.customers[customerID].AmountOwed.Equal(d("10")))
}

func TestCreditFailureRollsBackStockAndRecord(t *testing.T) {
	repo := newMemoryRepo()
	itemID, customerID := seed(repo)
	repo.failCreditWrite = true
	svc := NewService(repo, authztest.Guard("t1", "u1", authz.RoleOperator), nil)

	tx, err := svc.CreateTransaction(context.Background(), creditSale(itemID, customerID))
	require.NoError(t, err)
	assert.Nil(t, tx)
	assert.Empty(t, repo.state.transactions)
	assert.True(t, repo.state.items[itemID].QuantityG.Equal(d("100")))
}

func TestCashSaleLeavesCustomerAlone(t *testing.T) {
	repo := newMemoryRepo()
	itemID, customerID := seed(repo)
	svc := NewService(repo, authztest.Guard("t1", "u1", authz.RoleOperator), nil)

	in := creditSale(itemID, customerID)
	in.PaymentMethod = "cash"
	_, err := svc.CreateTransaction(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, repo.state.customers[customerID].AmountOwed.Equal(d("10")))
}

func TestUnknownReferencesSkipSideEffects(t *testing.T) {
	repo := newMemoryRepo()
	itemID, customerID := seed(repo)
	svc := NewService(repo, authztest.Guard("t1", "u1", authz.RoleOperator), nil)

	in := creditSale(uuid.NewString(), uuid.NewString())
	in.InventoryName = "Gone"
	in.CustomerName = "Bob"
	tx, err := svc.CreateTransaction(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Nil(t, tx.InventoryID)
	assert.Nil(t, tx.CustomerID)
	assert.Equal(t, "Gone", tx.InventoryName)
	assert.Equal(t, "Bob", tx.CustomerName)
	require.Len(t, repo.state.transactions, 1)
	assert.True(t, repo.state.items[itemID].QuantityG.Equal(d("100")))
	assert.True(t, repo.state.customers[customerID].AmountOwed.Equal(d("10")))

	purchase := TransactionInput{Type: "purchase", InventoryID: uuid.NewString(), TotalPrice: d("5"), PaymentMethod: "cash"}
	tx, err = svc.CreateTransaction(context.Background(), purchase)
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Nil(t, tx.InventoryID)
}

func TestTransactionPermissions(t *testing.T) {
	repo := newMemoryRepo()
	itemID, customerID := seed(repo)
	viewer := NewService(repo, authztest.Guard("t1", "u1", authz.RoleViewer), nil)

	_, err := viewer.CreateTransaction(context.Background(), creditSale(itemID, customerID))
	var authzErr *authz.AuthorizationError
	require.ErrorAs(t, err, &authzErr)
	assert.Empty(t, repo.state.transactions)

	_, err = viewer.ListTransactions(context.Background())
	require.NoError(t, err)

	anon := NewService(repo, authztest.Anonymous(), nil)
	_, err = anon.ListTransactions(context.Background())
	var authnErr *authz.AuthenticationError
	require.ErrorAs(t, err, &authnErr)
}

func TestQuoteUsesInventoryCost(t *testing.T) {
	repo := newMemoryRepo()
	itemID, _ := seed(repo)
	svc := NewService(repo, authztest.Guard("t1", "u1", authz.RoleOperator), nil)

	q, err := svc.QuoteSale(context.Background(), QuoteInput{QuantityGrams: d("10"), RetailPricePerGram: d("3"), InventoryID: itemID})
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.True(t, q.TotalPrice.Equal(d("30")))
	assert.True(t, q.Cost.IsPositive())

	q, err = svc.QuoteSale(context.Background(), QuoteInput{QuantityGrams: d("10"), InventoryID: uuid.NewString()})
	require.NoError(t, err)
	assert.Nil(t, q)

	_, err = svc.QuoteSale(context.Background(), QuoteInput{QuantityGrams: decimal.Zero})
	var vErr *httpx.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "quantityGrams")
}

func TestAccountHandlers(t *testing.T) {
	repo := newMemoryRepo()
	router := chi.NewRouter()
	NewHandler(NewService(repo, authztest.Guard("t1", "u1", authz.RoleAdmin), nil), nil).MountRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(`{"name":"Cash","type":"asset","balance":12.5}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.state.accounts, 1)
	var id string
	for id = range repo.state.accounts {
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/accounts/"+id, strings.NewReader(`{"name":"Till"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Till", repo.state.accounts[id].Name)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/accounts/"+uuid.NewString(), strings.NewReader(`{"name":"Nope"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/accounts/"+id, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/accounts/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAccountDeleteDeniedForOperator(t *testing.T) {
	repo := newMemoryRepo()
	router := chi.NewRouter()
	NewHandler(NewService(repo, authztest.Guard("t1", "u1", authz.RoleOperator), nil), nil).MountRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/accounts/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
