package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tenancy-control-plane/backend/internal/db"
	"tenancy-control-plane/backend/internal/invitation/domain"
	membershipdomain "tenancy-control-plane/backend/internal/membership/domain"
	membershiprepo "tenancy-control-plane/backend/internal/membership/repository"
)

// selectWithMembership selects invitation columns followed by membership columns.
const selectWithMembership = `
	SELECT i.key, i.accepted, i.created_date, i.owner_id, i.membership_id,
	       m.id, m.user_id, m.organization_id, m.is_active, m.joined_date, m.role
	FROM invitations i
	JOIN memberships m ON m.id = i.membership_id`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an invitation repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// CreateInvitationWithMembership inserts the membership and the invitation atomically. The
// membership insert is ON CONFLICT DO NOTHING against the (user, organization) constraint, so
// two concurrent invitations for one pair cannot both succeed.
func (r *PostgresRepository) CreateInvitationWithMembership(ctx context.Context, inv *domain.Invitation, m *membershipdomain.Membership) error {
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		inserted, err := membershiprepo.InsertMembership(ctx, tx, m, true)
		if err != nil {
			return err
		}
		if !inserted {
			return ErrAlreadyMember
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO invitations (key, accepted, created_date, owner_id, membership_id)
			VALUES ($1, $2, $3, $4, $5)`,
			inv.Key, inv.Accepted, inv.CreatedAt, nullString(inv.OwnerID), inv.MembershipID)
		if err != nil {
			return fmt.Errorf("insert invitation: %w", err)
		}
		return nil
	})
	if db.IsForeignKeyViolation(err, "") {
		return ErrUnknownReference
	}
	return err
}

// GetInvitationByKey returns the invitation with key, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetInvitationByKey(ctx context.Context, key string) (*domain.WithMembership, error) {
	row := r.db.QueryRowContext(ctx, selectWithMembership+` WHERE i.key = $1`, key)
	w, err := scanWithMembership(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

// ListInvitationsByOrg returns the organization's invitations, newest first.
func (r *PostgresRepository) ListInvitationsByOrg(ctx context.Context, orgID string) ([]*domain.WithMembership, error) {
	rows, err := r.db.QueryContext(ctx,
		selectWithMembership+` WHERE m.organization_id = $1 ORDER BY i.created_date DESC, i.key`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.WithMembership{}
	for rows.Next() {
		w, err := scanWithMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// DeleteInvitation deletes the invitation with key.
func (r *PostgresRepository) DeleteInvitation(ctx context.Context, key string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE key = $1`, key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanWithMembership(s membershiprepo.Scanner) (*domain.WithMembership, error) {
	var (
		inv    domain.Invitation
		m      membershipdomain.Membership
		owner  sql.NullString
		userID sql.NullString
		joined sql.NullTime
		role   string
	)
	if err := s.Scan(
		&inv.Key, &inv.Accepted, &inv.CreatedAt, &owner, &inv.MembershipID,
		&m.ID, &userID, &m.OrgID, &m.IsActive, &joined, &role,
	); err != nil {
		return nil, err
	}
	inv.OwnerID = owner.String
	m.UserID = userID.String
	if joined.Valid {
		t := joined.Time
		m.JoinedAt = &t
	}
	m.Role = membershipdomain.Role(role)
	return &domain.WithMembership{Invitation: &inv, Membership: &m}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
