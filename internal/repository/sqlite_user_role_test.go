package repository_test

import (
	"context"
	"testing"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/repository"
	"github.com/alexanderramin/stageflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRoleRepo_GrantRevoke(t *testing.T) {
	repo := repository.NewSQLiteUserRoleRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Grant(ctx, "dana", domain.RoleHoD))
	require.NoError(t, repo.Grant(ctx, "dana", domain.RoleApprover))
	require.NoError(t, repo.Grant(ctx, "dana", domain.RoleHoD), "granting twice is a no-op")

	roles, err := repo.ListRoles(ctx, "dana")
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleApprover, domain.RoleHoD}, roles)

	ok, err := repo.HasRole(ctx, "dana", domain.RoleHoD)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Revoke(ctx, "dana", domain.RoleHoD))
	ok, err = repo.HasRole(ctx, "dana", domain.RoleHoD)
	require.NoError(t, err)
	assert.False(t, ok)

	roles, err = repo.ListRoles(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, roles)
}
