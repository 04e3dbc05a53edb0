package scenarios

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/bizops/internal/platform/db"
	"github.com/odyssey-erp/bizops/internal/tenant"
)

var (
	scenarioTable = tenant.Table{
		Name:    "scenarios",
		Columns: "id, name, COALESCE(description, ''), wholesale_price, retail_price, quantity, time_period, expenses, created_at, updated_at",
		OrderBy: "created_at DESC",
	}
	salespersonTable = tenant.Table{
		Name:    "salespeople",
		Columns: "id, scenario_id, name, commission_rate, sales_quantity, created_at, updated_at",
		OrderBy: "created_at, id",
	}
)

func scanScenario(row pgx.Row) (Scenario, error) {
	var s Scenario
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.WholesalePrice, &s.RetailPrice, &s.Quantity,
		&s.TimePeriod, &s.Expenses, &s.CreatedAt, &s.UpdatedAt)
	s.Salespeople = []Salesperson{}
	return s, err
}

func scanSalesperson(row pgx.Row) (Salesperson, error) {
	var p Salesperson
	err := row.Scan(&p.ID, &p.ScenarioID, &p.Name, &p.CommissionRate, &p.SalesQuantity, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Repository persists scenarios in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the statements of one scenario write.
type TxRepository interface {
	InsertScenario(ctx context.Context, in Input) (Scenario, error)
	UpdateScenario(ctx context.Context, id string, upd Update) (Scenario, error)
	InsertSalespeople(ctx context.Context, scenarioID string, people []SalespersonInput) error
	DeleteSalespeople(ctx context.Context, scenarioID string) error
	DeleteScenario(ctx context.Context, id string) (bool, error)
	GetScenario(ctx context.Context, id string) (Scenario, error)
}

type txRepo struct {
	repo *tenant.Repository
}

// WithTx executes fn inside one repeatable-read transaction bound to tenantID.
func (r *Repository) WithTx(ctx context.Context, tenantID string, fn func(context.Context, TxRepository) error) error {
	base, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return err
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{repo: base.WithConn(tx)})
	})
}

// List returns every scenario of the tenant with its salespeople.
func (r *Repository) List(ctx context.Context, tenantID string) ([]Scenario, error) {
	repo, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return nil, err
	}
	items, err := tenant.List(ctx, repo, scenarioTable, scanScenario)
	if err != nil {
		return nil, err
	}
	people, err := tenant.List(ctx, repo, salespersonTable, scanSalesperson)
	if err != nil {
		return nil, err
	}
	byScenario := make(map[string][]Salesperson, len(items))
	for _, p := range people {
		byScenario[p.ScenarioID] = append(byScenario[p.ScenarioID], p)
	}
	for i := range items {
		if ps, ok := byScenario[items[i].ID]; ok {
			items[i].Salespeople = ps
		}
	}
	return items, nil
}

// Get returns one scenario with its salespeople.
func (r *Repository) Get(ctx context.Context, tenantID, id string) (Scenario, error) {
	repo, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return Scenario{}, err
	}
	return getScenario(ctx, repo, id)
}

func getScenario(ctx context.Context, repo *tenant.Repository, id string) (Scenario, error) {
	s, err := tenant.GetByID(ctx, repo, scenarioTable, id, scanScenario)
	if err != nil {
		return Scenario{}, err
	}
	people, err := tenant.ListWhere(ctx, repo, salespersonTable, "scenario_id = $2", []any{id}, scanSalesperson)
	if err != nil {
		return Scenario{}, err
	}
	if people != nil {
		s.Salespeople = people
	}
	return s, nil
}

func (t *txRepo) InsertScenario(ctx context.Context, in Input) (Scenario, error) {
	timePeriod := in.TimePeriod
	if timePeriod == "" {
		timePeriod = defaultTimePeriod
	}
	q := fmt.Sprintf(`INSERT INTO scenarios (tenant_id, name, description, wholesale_price, retail_price, quantity, time_period, expenses)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8) RETURNING %s`, scenarioTable.Columns)
	s, err := scanScenario(t.repo.QueryRow(ctx, q,
		in.Name, in.Description, in.WholesalePrice, in.RetailPrice, in.Quantity, timePeriod, in.Expenses))
	if err != nil {
		return Scenario{}, fmt.Errorf("scenarios: insert: %w", err)
	}
	return s, nil
}

func (t *txRepo) UpdateScenario(ctx context.Context, id string, upd Update) (Scenario, error) {
	var set tenant.Assignments
	if upd.Name != nil {
		set.Set("name", *upd.Name)
	}
	if upd.Description != nil {
		set.Set("description", *upd.Description)
	}
	if upd.WholesalePrice != nil {
		set.Set("wholesale_price", *upd.WholesalePrice)
	}
	if upd.RetailPrice != nil {
		set.Set("retail_price", *upd.RetailPrice)
	}
	if upd.Quantity != nil {
		set.Set("quantity", *upd.Quantity)
	}
	if upd.TimePeriod != nil {
		set.Set("time_period", *upd.TimePeriod)
	}
	if upd.Expenses != nil {
		set.Set("expenses", *upd.Expenses)
	}
	return tenant.UpdateByID(ctx, t.repo, scenarioTable, id, set, scanScenario)
}

func (t *txRepo) InsertSalespeople(ctx context.Context, scenarioID string, people []SalespersonInput) error {
	const q = `INSERT INTO salespeople (tenant_id, scenario_id, name, commission_rate, sales_quantity)
VALUES ($1, $2, $3, $4, $5)`
	for _, p := range people {
		if _, err := t.repo.Exec(ctx, q, scenarioID, p.Name, p.CommissionRate, p.SalesQuantity); err != nil {
			return fmt.Errorf("scenarios: insert salesperson: %w", err)
		}
	}
	return nil
}

func (t *txRepo) DeleteSalespeople(ctx context.Context, scenarioID string) error {
	_, err := t.repo.DeleteWhere(ctx, salespersonTable, "scenario_id", scenarioID)
	return err
}

func (t *txRepo) DeleteScenario(ctx context.Context, id string) (bool, error) {
	return t.repo.DeleteByID(ctx, scenarioTable, id)
}

func (t *txRepo) GetScenario(ctx context.Context, id string) (Scenario, error) {
	return getScenario(ctx, t.repo, id)
}
