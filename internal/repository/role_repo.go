package repository

import (
	"context"

	"backoffice/internal/model"

	"gorm.io/gorm"
)

// RoleRepository is the persistence boundary for RBAC roles and permissions.
type RoleRepository interface {
	List(ctx context.Context) ([]model.Role, error)
	FindByName(ctx context.Context, name string) (*model.Role, error)
	EnsurePermission(ctx context.Context, code, name, group string) (*model.Permission, error)
	EnsureRole(ctx context.Context, name, description string, isSystem bool) (*model.Role, error)
	SetPermissions(ctx context.Context, role *model.Role, perms []model.Permission) error
	HasPermission(ctx context.Context, roleName, code string) (bool, error)
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) List(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := GetDB(ctx, r.db).Preload("Permissions").Order("name ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Preload("Permissions").First(&role, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// EnsurePermission creates the permission if it does not exist yet. Used by
// startup seeding; idempotent.
func (r *roleRepository) EnsurePermission(ctx context.Context, code, name, group string) (*model.Permission, error) {
	var perm model.Permission
	err := GetDB(ctx, r.db).
		Where(model.Permission{Code: code}).
		Attrs(model.Permission{Name: name, Group: group}).
		FirstOrCreate(&perm).Error
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

// EnsureRole creates the role if it does not exist yet. Idempotent.
func (r *roleRepository) EnsureRole(ctx context.Context, name, description string, isSystem bool) (*model.Role, error) {
	var role model.Role
	err := GetDB(ctx, r.db).
		Where(model.Role{Name: name}).
		Attrs(model.Role{Description: description, IsSystem: isSystem}).
		FirstOrCreate(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// SetPermissions replaces the role's permission set.
func (r *roleRepository) SetPermissions(ctx context.Context, role *model.Role, perms []model.Permission) error {
	return GetDB(ctx, r.db).Model(role).Association("Permissions").Replace(perms)
}

// HasPermission reports whether the named role holds the permission code.
func (r *roleRepository) HasPermission(ctx context.Context, roleName, code string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).
		Table("permissions").
		Joins("INNER JOIN role_permissions rp ON rp.permission_id = permissions.id").
		Joins("INNER JOIN roles ON roles.id = rp.role_id").
		Where("roles.name = ? AND permissions.code = ?", roleName, code).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
