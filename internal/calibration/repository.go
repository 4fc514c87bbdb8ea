package calibration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DonutsDelivery/auto-brightness/internal/monitor"
)

// Repository persists calibrations and profiles.
type Repository interface {
	// Get returns the calibration for label, or ErrCalibrationNotFound.
	Get(ctx context.Context, label string) (Calibration, error)

	// List returns every calibration ordered by label.
	List(ctx context.Context) ([]Calibration, error)

	// Save validates and upserts c, stamping UpdatedAt.
	Save(ctx context.Context, c *Calibration) error

	// Delete removes the calibration for label, or returns ErrCalibrationNotFound.
	Delete(ctx context.Context, label string) error

	SaveProfile(ctx context.Context, p monitor.Profile) error
	GetProfile(ctx context.Context, label, name string) (monitor.Profile, error)
	ListProfiles(ctx context.Context, label string) ([]monitor.Profile, error)
	DeleteProfile(ctx context.Context, label, name string) error
}

// SQLiteRepository implements Repository on the calibrations and profiles
// tables.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a repository over an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Get retrieves the calibration for label.
func (r *SQLiteRepository) Get(ctx context.Context, label string) (Calibration, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT label, offset_percent, min_percent, max_percent, is_excluded, updated_at
		FROM calibrations
		WHERE label = ?`, label)

	c, err := scanCalibration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Calibration{}, fmt.Errorf("%w: %s", ErrCalibrationNotFound, label)
	}
	if err != nil {
		return Calibration{}, fmt.Errorf("querying calibration: %w", err)
	}
	return c, nil
}

// List retrieves all calibrations.
func (r *SQLiteRepository) List(ctx context.Context) ([]Calibration, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT label, offset_percent, min_percent, max_percent, is_excluded, updated_at
		FROM calibrations
		ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("querying calibrations: %w", err)
	}
	defer rows.Close()

	var out []Calibration
	for rows.Next() {
		c, err := scanCalibration(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning calibration: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating calibrations: %w", err)
	}
	return out, nil
}

// Save inserts or replaces the calibration for c.Label.
func (r *SQLiteRepository) Save(ctx context.Context, c *Calibration) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.UpdatedAt = r.now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO calibrations (label, offset_percent, min_percent, max_percent, is_excluded, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(label) DO UPDATE SET
			offset_percent = excluded.offset_percent,
			min_percent = excluded.min_percent,
			max_percent = excluded.max_percent,
			is_excluded = excluded.is_excluded,
			updated_at = excluded.updated_at`,
		c.Label, c.Offset, c.MinPercent, c.MaxPercent, boolToInt(c.Excluded),
		c.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving calibration: %w", err)
	}
	return nil
}

// Delete removes a calibration.
func (r *SQLiteRepository) Delete(ctx context.Context, label string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM calibrations WHERE label = ?", label)
	if err != nil {
		return fmt.Errorf("deleting calibration: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrCalibrationNotFound, label)
	}
	return nil
}

// SaveProfile inserts or replaces the profile (p.Label, p.Name).
func (r *SQLiteRepository) SaveProfile(ctx context.Context, p monitor.Profile) error {
	if p.Label == "" || p.Name == "" {
		return fmt.Errorf("%w: profile needs a label and a name", ErrInvalidCalibration)
	}
	settings, err := json.Marshal(p.Settings)
	if err != nil {
		return fmt.Errorf("marshalling settings: %w", err)
	}
	now := r.now().UTC().Format(time.RFC3339Nano)

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO profiles (label, name, settings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(label, name) DO UPDATE SET
			settings = excluded.settings,
			updated_at = excluded.updated_at`,
		p.Label, p.Name, string(settings), now, now)
	if err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// GetProfile retrieves one profile.
func (r *SQLiteRepository) GetProfile(ctx context.Context, label, name string) (monitor.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT label, name, settings FROM profiles WHERE label = ? AND name = ?", label, name)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return monitor.Profile{}, fmt.Errorf("%w: %s/%s", ErrProfileNotFound, label, name)
	}
	if err != nil {
		return monitor.Profile{}, fmt.Errorf("querying profile: %w", err)
	}
	return p, nil
}

// ListProfiles returns the profiles saved for label, ordered by name.
func (r *SQLiteRepository) ListProfiles(ctx context.Context, label string) ([]monitor.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT label, name, settings FROM profiles WHERE label = ? ORDER BY name", label)
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	defer rows.Close()

	var out []monitor.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profiles: %w", err)
	}
	return out, nil
}

// DeleteProfile removes one profile.
func (r *SQLiteRepository) DeleteProfile(ctx context.Context, label, name string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM profiles WHERE label = ? AND name = ?", label, name)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrProfileNotFound, label, name)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCalibration(row rowScanner) (Calibration, error) {
	var c Calibration
	var excluded int
	var updatedAt string
	if err := row.Scan(&c.Label, &c.Offset, &c.MinPercent, &c.MaxPercent, &excluded, &updatedAt); err != nil {
		return Calibration{}, err
	}
	c.Excluded = excluded != 0
	c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt) //nolint:errcheck // written by Save
	return c, nil
}

func scanProfile(row rowScanner) (monitor.Profile, error) {
	var p monitor.Profile
	var settings string
	if err := row.Scan(&p.Label, &p.Name, &settings); err != nil {
		return monitor.Profile{}, err
	}
	if err := json.Unmarshal([]byte(settings), &p.Settings); err != nil {
		return monitor.Profile{}, fmt.Errorf("unmarshalling settings: %w", err)
	}
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
