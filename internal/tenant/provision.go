package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/bizops/internal/platform/db"
	"github.com/odyssey-erp/bizops/internal/platform/httpx"
	"github.com/odyssey-erp/bizops/internal/platform/validate"
)

// ErrAlreadyExists is returned when a tenant id, slug or domain is taken.
var ErrAlreadyExists = errors.New("tenant: already exists")

// NewTenant describes a tenant to provision. An empty ID lets the database
// assign one.
type NewTenant struct {
	ID      string   `json:"id" validate:"omitempty,max=64"`
	Slug    string   `json:"slug" validate:"required,max=64"`
	Name    string   `json:"name" validate:"required,max=200"`
	Domains []string `json:"domains" validate:"dive,required,max=253"`
}

// Tenant is a provisioned tenant with its registered domains.
type Tenant struct {
	ID      string   `json:"id"`
	Slug    string   `json:"slug"`
	Name    string   `json:"name"`
	Domains []string `json:"domains"`
}

// Provisioner registers tenants and the domains they are served on.
type Provisioner struct {
	db       db.TxBeginner
	validate *validator.Validate
}

// NewProvisioner constructs a Provisioner.
func NewProvisioner(conn db.TxBeginner) *Provisioner {
	return &Provisioner{db: conn, validate: validate.New()}
}

// Create inserts the tenant and its domains in one transaction. Domains are
// normalized the way request hosts are.
func (p *Provisioner) Create(ctx context.Context, in NewTenant) (Tenant, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Name = strings.TrimSpace(in.Name)
	for i, d := range in.Domains {
		in.Domains[i] = NormalizeHost(d)
	}
	if err := p.validate.Struct(in); err != nil {
		return Tenant{}, httpx.NewValidationError(err)
	}

	out := Tenant{Slug: in.Slug, Name: in.Name, Domains: []string{}}
	err := db.WithTx(ctx, p.db, func(tx pgx.Tx) error {
		const insertTenant = `INSERT INTO tenants (id, slug, name)
VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text), $2, $3) RETURNING id`
		if err := tx.QueryRow(ctx, insertTenant, in.ID, in.Slug, in.Name).Scan(&out.ID); err != nil {
			return err
		}
		for _, domain := range in.Domains {
			if _, err := tx.Exec(ctx, `INSERT INTO tenant_domains (tenant_id, domain) VALUES ($1, $2)`, out.ID, domain); err != nil {
				return err
			}
			out.Domains = append(out.Domains, domain)
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Tenant{}, fmt.Errorf("%w: %s", ErrAlreadyExists, in.Slug)
		}
		return Tenant{}, fmt.Errorf("tenant: create %s: %w", in.Slug, err)
	}
	return out, nil
}
