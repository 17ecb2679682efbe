package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/prperemyshlev/hrms-identity/internal/dbx"
)

// roleRepository implements RoleRepository interface
type roleRepository struct {
	db dbx.DBTX
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db dbx.DBTX) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) WithTx(tx dbx.DBTX) RoleRepository {
	return &roleRepository{db: tx}
}

// EnsureRoles creates any of names that do not exist yet
func (r *roleRepository) EnsureRoles(ctx context.Context, names []string) error {
	query := `
		INSERT INTO roles (name)
		SELECT UNNEST($1::text[])
		ON CONFLICT DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, pq.Array(normalizeRoles(names))); err != nil {
		return fmt.Errorf("failed to ensure roles: %w", err)
	}
	return nil
}

// AssignRoles grants names to an account. Roles already held are skipped;
// any unknown name fails the whole call with ErrUnknownRole.
func (r *roleRepository) AssignRoles(ctx context.Context, accountID string, names []string) error {
	names = normalizeRoles(names)
	if len(names) == 0 {
		return nil
	}

	var known int
	countQuery := `SELECT COUNT(*) FROM roles WHERE LOWER(name) = ANY($1)`
	if err := r.db.QueryRowContext(ctx, countQuery, pq.Array(names)).Scan(&known); err != nil {
		return fmt.Errorf("failed to look up roles: %w", err)
	}
	if known != len(names) {
		return fmt.Errorf("assigning %v: %w", names, ErrUnknownRole)
	}

	query := `
		INSERT INTO account_roles (account_id, role_id)
		SELECT $1, id FROM roles WHERE LOWER(name) = ANY($2)
		ON CONFLICT DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, accountID, pq.Array(names)); err != nil {
		return fmt.Errorf("failed to assign roles: %w", err)
	}
	return nil
}

// ListRoleNames returns the role names held by an account, sorted
func (r *roleRepository) ListRoleNames(ctx context.Context, accountID string) ([]string, error) {
	query := `
		SELECT r.name
		FROM account_roles ar
		JOIN roles r ON r.id = ar.role_id
		WHERE ar.account_id = $1
		ORDER BY r.name
	`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roles: %w", err)
	}

	return names, nil
}

// normalizeRoles lowercases, trims and de-duplicates role names
func normalizeRoles(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
