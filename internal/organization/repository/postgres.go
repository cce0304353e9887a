package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"tenancy-control-plane/backend/internal/db"
	membershipdomain "tenancy-control-plane/backend/internal/membership/domain"
	membershiprepo "tenancy-control-plane/backend/internal/membership/repository"
	"tenancy-control-plane/backend/internal/organization/domain"
)

const (
	orgColumns     = `id, slug, name, description, contact, owner_id, created_date, updated_date`
	slugConstraint = "organizations_slug_key"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an organization repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetOrganizationByID returns the organization for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id)
	return scanOptional(row)
}

// GetOrganizationBySlug returns the organization with slug, or nil if not found.
func (r *PostgresRepository) GetOrganizationBySlug(ctx context.Context, slug string) (*domain.Org, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM organizations WHERE slug = $1`, slug)
	return scanOptional(row)
}

// ListOrganizations returns every organization ordered by slug.
func (r *PostgresRepository) ListOrganizations(ctx context.Context) ([]*domain.Org, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+orgColumns+` FROM organizations ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.Org{}
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CreateOrganizationWithOwner inserts the organization and the owner membership atomically.
// The slug check is the insert itself (ON CONFLICT DO NOTHING), so concurrent creates with the
// same slug cannot both succeed.
func (r *PostgresRepository) CreateOrganizationWithOwner(ctx context.Context, o *domain.Org, owner *membershipdomain.Membership) error {
	contact, err := marshalContact(o.Contact)
	if err != nil {
		return err
	}
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO organizations (id, slug, name, description, contact, owner_id, created_date, updated_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (slug) DO NOTHING`,
			o.ID, o.Slug, o.Name, o.Description, contact, nullString(o.OwnerID), o.CreatedAt, o.UpdatedAt)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrSlugTaken
		}
		if _, err := membershiprepo.InsertMembership(ctx, tx, owner, false); err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}
		return nil
	})
}

// UpdateOrganization updates the mutable columns. owner_id and created_date are never written.
func (r *PostgresRepository) UpdateOrganization(ctx context.Context, o *domain.Org) (bool, error) {
	contact, err := marshalContact(o.Contact)
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE organizations
		SET slug = $2, name = $3, description = $4, contact = $5, updated_date = $6
		WHERE id = $1`,
		o.ID, o.Slug, o.Name, o.Description, contact, o.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, slugConstraint) {
			return false, ErrSlugTaken
		}
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteOrganization deletes the organization with id.
func (r *PostgresRepository) DeleteOrganization(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrg(s scanner) (*domain.Org, error) {
	var (
		o       domain.Org
		contact []byte
		owner   sql.NullString
	)
	if err := s.Scan(&o.ID, &o.Slug, &o.Name, &o.Description, &contact, &owner, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.OwnerID = owner.String
	o.Contact = map[string]any{}
	if len(contact) > 0 {
		if err := json.Unmarshal(contact, &o.Contact); err != nil {
			return nil, fmt.Errorf("decode contact: %w", err)
		}
	}
	return &o, nil
}

func scanOptional(row *sql.Row) (*domain.Org, error) {
	o, err := scanOrg(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

func marshalContact(c map[string]any) (string, error) {
	if c == nil {
		c = map[string]any{}
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode contact: %w", err)
	}
	return string(b), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
