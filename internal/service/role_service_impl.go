package service

import (
	"context"
	"strings"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/repository"
)

type roleService struct {
	roles repository.UserRoleRepo
}

// NewRoleService resolves roles from the user_roles table.
func NewRoleService(roles repository.UserRoleRepo) RoleService {
	return &roleService{roles: roles}
}

func (s *roleService) Grant(ctx context.Context, userID string, role domain.Role) error {
	if err := checkRoleArgs(userID, role); err != nil {
		return err
	}
	return s.roles.Grant(ctx, strings.TrimSpace(userID), role)
}

func (s *roleService) Revoke(ctx context.Context, userID string, role domain.Role) error {
	if err := checkRoleArgs(userID, role); err != nil {
		return err
	}
	return s.roles.Revoke(ctx, strings.TrimSpace(userID), role)
}

func (s *roleService) Roles(ctx context.Context, userID string) ([]domain.Role, error) {
	return s.roles.ListRoles(ctx, strings.TrimSpace(userID))
}

func (s *roleService) IsHoD(ctx context.Context, userID string) (bool, error) {
	return s.HasRole(ctx, userID, domain.RoleHoD)
}

func (s *roleService) HasRole(ctx context.Context, userID string, role domain.Role) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, nil
	}
	return s.roles.HasRole(ctx, strings.TrimSpace(userID), role)
}

func checkRoleArgs(userID string, role domain.Role) error {
	if strings.TrimSpace(userID) == "" {
		return domain.Validationf("user id is required")
	}
	switch role {
	case domain.RoleHoD, domain.RoleApprover, domain.RoleRequester:
		return nil
	}
	return domain.Validationf("unknown role %q", role)
}
