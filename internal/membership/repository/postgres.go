package repository

import (
	"context"
	"database/sql"
	"errors"

	"tenancy-control-plane/backend/internal/db"
	"tenancy-control-plane/backend/internal/membership/domain"
)

// Columns selected by every membership query, in ScanMembership order.
const Columns = `id, user_id, organization_id, is_active, joined_date, role`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a membership repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetMembershipByID returns the membership for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetMembershipByID(ctx context.Context, id string) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+Columns+` FROM memberships WHERE id = $1`, id)
	return scanOptional(row)
}

// GetMembershipByUserAndOrg returns the membership for the given user and org, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+Columns+` FROM memberships WHERE user_id = $1 AND organization_id = $2`, userID, orgID)
	return scanOptional(row)
}

// ListMembershipsByOrg returns all memberships for the given org. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListMembershipsByOrg(ctx context.Context, orgID string) ([]*domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+Columns+` FROM memberships WHERE organization_id = $1 ORDER BY joined_date NULLS LAST, id`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.Membership{}
	for rows.Next() {
		m, err := ScanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateRole sets the membership role. Returns nil if the membership does not exist.
func (r *PostgresRepository) UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE memberships SET role = $2 WHERE id = $1 RETURNING `+Columns, id, string(role))
	return scanOptional(row)
}

// DeleteMembership deletes the membership; its invitation goes with it (ON DELETE CASCADE).
func (r *PostgresRepository) DeleteMembership(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM memberships WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanMembership scans one row selected with Columns.
func ScanMembership(s Scanner) (*domain.Membership, error) {
	var (
		m      domain.Membership
		userID sql.NullString
		joined sql.NullTime
		role   string
	)
	if err := s.Scan(&m.ID, &userID, &m.OrgID, &m.IsActive, &joined, &role); err != nil {
		return nil, err
	}
	m.UserID = userID.String
	if joined.Valid {
		t := joined.Time
		m.JoinedAt = &t
	}
	m.Role = domain.Role(role)
	return &m, nil
}

// InsertMembership inserts m using q (a *sql.DB or *sql.Tx). When onConflictSkip is true a
// duplicate (user_id, organization_id) pair inserts nothing and inserted is false.
func InsertMembership(ctx context.Context, q db.Execer, m *domain.Membership, onConflictSkip bool) (inserted bool, err error) {
	query := `INSERT INTO memberships (id, user_id, organization_id, is_active, joined_date, role)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if onConflictSkip {
		query += ` ON CONFLICT ON CONSTRAINT memberships_user_org_key DO NOTHING`
	}
	var joined sql.NullTime
	if m.JoinedAt != nil {
		joined = sql.NullTime{Time: *m.JoinedAt, Valid: true}
	}
	userID := sql.NullString{String: m.UserID, Valid: m.UserID != ""}
	res, err := q.ExecContext(ctx, query, m.ID, userID, m.OrgID, m.IsActive, joined, string(m.Role))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanOptional(row *sql.Row) (*domain.Membership, error) {
	m, err := ScanMembership(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}
