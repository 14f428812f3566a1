// Package postgres implements the license store on database/sql.
//
// Activations live in a JSONB column guarded by an integer version column.
// AddActivation is optimistic: read the row, decide, then update conditioned
// on the version still matching. A lost race costs one bounded retry instead
// of a lock held across the read-decide-write sequence.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"keygate/internal/license/models"
	"keygate/internal/license/store"
	"keygate/pkg/platform/sentinel"
)

type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL license store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, license *models.License) error {
	activations, err := json.Marshal(license.Activations)
	if err != nil {
		return fmt.Errorf("marshal activations: %w", err)
	}
	if license.Activations == nil {
		activations = []byte("[]")
	}

	query := `
		INSERT INTO licenses (key, email, plan, device_cap, activations, active, issued_at, event_token, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), 0)
	`
	_, err = s.db.ExecContext(ctx, query,
		license.Key,
		license.Email,
		string(license.Plan),
		license.DeviceCap,
		activations,
		license.Active,
		license.IssuedAt,
		license.EventToken,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			if strings.Contains(pqErr.Constraint, "event_token") {
				return sentinel.ErrDuplicateEvent
			}
			return sentinel.ErrDuplicateKey
		}
		return fmt.Errorf("insert license: %w", err)
	}
	return nil
}

func (s *Store) FindByKey(ctx context.Context, key string) (*models.License, error) {
	return s.findOne(ctx, `WHERE key = $1`, key)
}

func (s *Store) FindByEventToken(ctx context.Context, token string) (*models.License, error) {
	return s.findOne(ctx, `WHERE event_token = $1`, token)
}

func (s *Store) AddActivation(ctx context.Context, key, deviceID string) (*models.License, error) {
	for attempt := 0; attempt < store.MaxAttempts; attempt++ {
		license, version, err := s.findForUpdate(ctx, key)
		if err != nil {
			return nil, err
		}

		if license.IsActivated(deviceID) {
			return license, sentinel.ErrAlreadyBound
		}
		if license.AtCap() {
			return license, sentinel.ErrCapExceeded
		}

		license.Activations = append(license.Activations, deviceID)
		activations, err := json.Marshal(license.Activations)
		if err != nil {
			return nil, fmt.Errorf("marshal activations: %w", err)
		}

		res, err := s.db.ExecContext(ctx, `
			UPDATE licenses
			SET activations = $1, version = version + 1
			WHERE key = $2 AND version = $3
		`, activations, key, version)
		if err != nil {
			return nil, fmt.Errorf("update activations: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if rows == 1 {
			return license, nil
		}
		// Version moved under us; retry the whole read-decide-write sequence.
	}
	return nil, sentinel.ErrContention
}

func (s *Store) SetActive(ctx context.Context, key string, active bool) (*models.License, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE licenses SET active = $1, version = version + 1 WHERE key = $2
	`, active, key)
	if err != nil {
		return nil, fmt.Errorf("update active flag: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return nil, sentinel.ErrNotFound
	}
	return s.FindByKey(ctx, key)
}

func (s *Store) List(ctx context.Context) ([]*models.License, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` FROM licenses ORDER BY issued_at`)
	if err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	defer rows.Close()

	var out []*models.License
	for rows.Next() {
		l, _, err := scanLicense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

const selectColumns = `
	SELECT key, email, plan, device_cap, activations, active, issued_at, COALESCE(event_token, ''), version
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLicense(row rowScanner) (*models.License, int64, error) {
	var (
		l           models.License
		plan        string
		activations []byte
		version     int64
	)
	err := row.Scan(&l.Key, &l.Email, &plan, &l.DeviceCap, &activations, &l.Active, &l.IssuedAt, &l.EventToken, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, sentinel.ErrNotFound
		}
		return nil, 0, fmt.Errorf("scan license: %w", err)
	}
	l.Plan = models.Plan(plan)
	if err := json.Unmarshal(activations, &l.Activations); err != nil {
		return nil, 0, fmt.Errorf("unmarshal activations: %w", err)
	}
	return &l, version, nil
}

func (s *Store) findOne(ctx context.Context, where string, arg any) (*models.License, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` FROM licenses `+where, arg)
	l, _, err := scanLicense(row)
	return l, err
}

func (s *Store) findForUpdate(ctx context.Context, key string) (*models.License, int64, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` FROM licenses WHERE key = $1`, key)
	return scanLicense(row)
}
