package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"rankpilot/internal/models"
)

// ListUserProfiles returns all profiles ordered by creation time descending.
func (s *Store) ListUserProfiles(ctx context.Context) ([]models.UserProfile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, email, full_name, is_admin, created_at
		FROM user_profiles
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query user profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.UserProfile
	for rows.Next() {
		var p models.UserProfile
		if err := rows.Scan(&p.ID, &p.Email, &p.FullName, &p.IsAdmin, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// ListActiveOwnedClients returns active clients whose owner field is set.
func (s *Store) ListActiveOwnedClients(ctx context.Context) ([]models.Client, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, url, owner_id, active, created_at
		FROM clients
		WHERE active AND owner_id IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var clients []models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// GetClient fetches a client by id.
func (s *Store) GetClient(ctx context.Context, id string) (models.Client, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, url, owner_id, active, created_at
		FROM clients WHERE id = $1
	`, id)
	c, err := scanClient(row)
	if err != nil {
		return models.Client{}, err
	}
	return c, nil
}

func scanClient(row pgx.Row) (models.Client, error) {
	var c models.Client
	var owner pgtype.Text
	err := row.Scan(&c.ID, &c.Name, &c.URL, &owner, &c.Active, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Client{}, ErrNotFound
	}
	if err != nil {
		return models.Client{}, fmt.Errorf("scan client: %w", err)
	}
	c.OwnerID = textPtr(owner)
	return c, nil
}
