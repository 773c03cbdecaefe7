package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
)

// SQLiteUserRoleRepo implements UserRoleRepo using a SQLite database.
type SQLiteUserRoleRepo struct {
	db db.DBTX
}

func NewSQLiteUserRoleRepo(conn db.DBTX) *SQLiteUserRoleRepo {
	return &SQLiteUserRoleRepo{db: conn}
}

func (r *SQLiteUserRoleRepo) Grant(ctx context.Context, userID string, role domain.Role) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_roles (user_id, role) VALUES (?, ?)`, userID, string(role))
	if err != nil {
		return fmt.Errorf("granting role: %w", err)
	}
	return nil
}

func (r *SQLiteUserRoleRepo) Revoke(ctx context.Context, userID string, role domain.Role) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = ? AND role = ?`, userID, string(role))
	if err != nil {
		return fmt.Errorf("revoking role: %w", err)
	}
	return nil
}

func (r *SQLiteUserRoleRepo) ListRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role FROM user_roles WHERE user_id = ? ORDER BY role`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		roles = append(roles, domain.Role(role))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating roles: %w", err)
	}
	return roles, nil
}

func (r *SQLiteUserRoleRepo) HasRole(ctx context.Context, userID string, role domain.Role) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_roles WHERE user_id = ? AND role = ?`, userID, string(role)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking role: %w", err)
	}
	return n > 0, nil
}
