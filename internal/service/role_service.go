package service

import (
	"context"
	"fmt"

	"backoffice/internal/middleware"
	"backoffice/internal/model"
	"backoffice/internal/repository"

	"github.com/rs/zerolog"
)

// seededPermission is one entry of the startup permission catalog.
type seededPermission struct {
	Code  string
	Name  string
	Group string
}

var permissionCatalog = []seededPermission{
	{"approvals.view", "View approval requests", "approvals"},
	{"approvals.request", "Submit approval requests", "approvals"},
	{"approvals.decide.hr", "Decide HR approval requests", "approvals"},
	{"approvals.decide.inventory", "Decide inventory approval requests", "approvals"},
	{"approvals.decide.finance", "Decide finance approval requests", "approvals"},

	{"shipments.view", "View shipments", "shipments"},
	{"shipments.manage", "Create and update shipments", "shipments"},

	{"employees.view", "View employee directory", "employees"},
	{"employees.manage", "Manage employee directory", "employees"},

	{"materials.view", "View material directory", "materials"},
	{"materials.manage", "Manage material directory", "materials"},

	{"audit.view", "View audit log", "audit"},
}

// rolePermissions maps each seeded role to its permission codes. The admin
// role is seeded without an explicit list since it bypasses checks entirely.
var rolePermissions = map[string][]string{
	"operations": {
		"approvals.view", "approvals.request",
		"shipments.view", "shipments.manage",
		"employees.view", "materials.view",
	},
	"hr": {
		"approvals.view", "approvals.decide.hr",
		"employees.view", "employees.manage",
		"shipments.view",
	},
	"inventory": {
		"approvals.view", "approvals.decide.inventory",
		"materials.view", "materials.manage",
		"shipments.view",
	},
	"finance": {
		"approvals.view", "approvals.decide.finance",
		"shipments.view", "audit.view",
	},
}

var roleDescriptions = map[string]string{
	"admin":      "Full access to every back-office function",
	"operations": "Plans shipments and submits resource approval requests",
	"hr":         "Reviews team allocation requests",
	"inventory":  "Reviews material allocation requests",
	"finance":    "Reviews expense allocation requests",
}

// RoleService exposes RBAC lookups and the startup seeding routine.
type RoleService interface {
	ListRoles(ctx context.Context) ([]model.Role, error)
	HasPermission(ctx context.Context, roleName, code string) (bool, error)
	SeedDefaults(ctx context.Context) error
}

type roleService struct {
	roleRepo repository.RoleRepository
	log      zerolog.Logger
}

func NewRoleService(roleRepo repository.RoleRepository, logger zerolog.Logger) RoleService {
	return &roleService{roleRepo: roleRepo, log: logger}
}

func (s *roleService) ListRoles(ctx context.Context) ([]model.Role, error) {
	return s.roleRepo.List(ctx)
}

// HasPermission resolves whether a role holds a permission code. The admin
// role always passes.
func (s *roleService) HasPermission(ctx context.Context, roleName, code string) (bool, error) {
	if roleName == "admin" {
		return true, nil
	}
	return s.roleRepo.HasPermission(ctx, roleName, code)
}

// SeedDefaults creates the built-in permission catalog and roles if missing.
// Safe to run on every startup.
func (s *roleService) SeedDefaults(ctx context.Context) error {
	perms := make(map[string]model.Permission, len(permissionCatalog))
	for _, p := range permissionCatalog {
		created, err := s.roleRepo.EnsurePermission(ctx, p.Code, p.Name, p.Group)
		if err != nil {
			return fmt.Errorf("failed to seed permission %s: %w", p.Code, err)
		}
		perms[p.Code] = *created
	}

	if _, err := s.roleRepo.EnsureRole(ctx, "admin", roleDescriptions["admin"], true); err != nil {
		return fmt.Errorf("failed to seed admin role: %w", err)
	}

	for name, codes := range rolePermissions {
		role, err := s.roleRepo.EnsureRole(ctx, name, roleDescriptions[name], true)
		if err != nil {
			return fmt.Errorf("failed to seed role %s: %w", name, err)
		}

		assigned := make([]model.Permission, 0, len(codes))
		for _, code := range codes {
			perm, ok := perms[code]
			if !ok {
				return fmt.Errorf("role %s references unknown permission %s", name, code)
			}
			assigned = append(assigned, perm)
		}
		if err := s.roleRepo.SetPermissions(ctx, role, assigned); err != nil {
			return fmt.Errorf("failed to assign permissions to role %s: %w", name, err)
		}
	}

	// Seeding may have changed role→permission mappings.
	middleware.ClearPermissionCache("")

	s.log.Info().Int("permissions", len(permissionCatalog)).Msg("default roles and permissions seeded")
	return nil
}
