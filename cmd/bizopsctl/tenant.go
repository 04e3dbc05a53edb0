package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/bizops/internal/authz"
	"github.com/odyssey-erp/bizops/internal/businessdata"
	"github.com/odyssey-erp/bizops/internal/reporting"
	"github.com/odyssey-erp/bizops/internal/tenant"
)

// ownerBindings binds the CLI operator as owner of whichever tenant the
// command names.
type ownerBindings struct{}

func (ownerBindings) BoundRoles(context.Context, string, string) ([]authz.Role, error) {
	return []authz.Role{authz.RoleOwner}, nil
}

func operatorGuard(tenantID string) *authz.Guard {
	return authz.NewGuard(authz.FixedResolver{Principal: &authz.Principal{
		UserID:     "bizopsctl",
		TenantID:   tenantID,
		ClaimRoles: []authz.Role{authz.RoleOwner},
	}}, ownerBindings{})
}

// requireTenant accepts any non-blank id; tenant ids are free-form text.
func requireTenant(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return fmt.Errorf("--tenant: %w", tenant.ErrNoTenant)
	}
	return nil
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Provision tenants",
	}

	var in tenant.NewTenant
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a tenant and the domains it is served on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			created, err := tenant.NewProvisioner(pool).Create(cmd.Context(), in)
			if errors.Is(err, tenant.ErrAlreadyExists) {
				return fmt.Errorf("%w (id, slug or domain is taken)", err)
			}
			if err != nil {
				return err
			}
			return json.NewEncoder(out(cmd)).Encode(created)
		},
	}
	createCmd.Flags().StringVar(&in.ID, "id", "", "Tenant id (generated when empty)")
	createCmd.Flags().StringVar(&in.Slug, "slug", "", "Unique tenant slug")
	createCmd.Flags().StringVar(&in.Name, "name", "", "Display name")
	createCmd.Flags().StringSliceVar(&in.Domains, "domain", nil, "Domain to serve the tenant on (repeatable)")
	_ = createCmd.MarkFlagRequired("slug")
	_ = createCmd.MarkFlagRequired("name")

	cmd.AddCommand(createCmd)
	return cmd
}

func rolesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Manage role bindings",
	}

	var (
		userID   string
		tenantID string
		roles    []string
	)
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Replace every binding of a user with the given tenant roles",
		Long:  "Replaces all bindings of --user across every tenant. Omitting --tenant revokes everything.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var payload []authz.TenantRoles
			if tenantID != "" {
				payload = append(payload, authz.TenantRoles{TenantID: tenantID, Roles: roles})
			} else if len(roles) > 0 {
				return errors.New("--role requires --tenant")
			}

			pool, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := authz.NewSyncer(authz.NewPostgresSyncStore(pool)).Sync(cmd.Context(), userID, payload); err != nil {
				return err
			}
			_, err = fmt.Fprintf(out(cmd), "synced %d tenant(s) for %s\n", len(payload), userID)
			return err
		},
	}
	syncCmd.Flags().StringVar(&userID, "user", "", "Identity provider user id")
	syncCmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant id")
	syncCmd.Flags().StringSliceVar(&roles, "role", nil, "Role to bind (repeatable)")
	_ = syncCmd.MarkFlagRequired("user")

	cmd.AddCommand(syncCmd)
	return cmd
}

func exportCmd() *cobra.Command {
	var tenantID string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a tenant export as JSON to stdout",
		Args:  cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			return requireTenant(tenantID)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := reporting.NewService(reporting.NewRepository(pool), nil, newLogger(cmd))
			export, err := svc.Build(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(out(cmd))
			enc.SetIndent("", "  ")
			return enc.Encode(export)
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant id")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func businessDataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "business-data",
		Short: "Manage tenant business settings",
	}

	var tenantID string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default business data unless the tenant already has some",
		Args:  cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			return requireTenant(tenantID)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := businessdata.NewService(businessdata.NewRepository(pool), operatorGuard(tenantID), newLogger(cmd))
			data, err := svc.InitializeDefaults(cmd.Context())
			if err != nil {
				return err
			}
			if data == nil {
				return errors.New("business data initialisation failed, see log")
			}
			return json.NewEncoder(out(cmd)).Encode(data)
		},
	}
	initCmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant id")
	_ = initCmd.MarkFlagRequired("tenant")

	cmd.AddCommand(initCmd)
	return cmd
}
