package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/unklstewy/ads-loiter/pkg/flight"
)

const insertVerdictSQL = `INSERT INTO loiter_verdicts (callsign, owner, model, detected_at, detected_on, mean_altitude_m) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (callsign, detected_on) DO NOTHING`

// VerdictRepository stores loitering verdicts, one per callsign per day.
type VerdictRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewVerdictRepository creates a new verdict repository.
func NewVerdictRepository(db *sql.DB) *VerdictRepository {
	return &VerdictRepository{db: db, now: time.Now}
}

// Name identifies the sink in logs and metrics.
func (r *VerdictRepository) Name() string { return "postgres" }

// Record inserts each verdict and returns those that were new for their day.
// Rows that collide with an existing (callsign, day) are left untouched.
func (r *VerdictRepository) Record(ctx context.Context, verdicts []flight.Verdict) ([]flight.Verdict, error) {
	var written []flight.Verdict
	for _, v := range verdicts {
		at := v.DetectedAt
		if at.IsZero() {
			at = r.now()
		}
		at = at.Truncate(time.Minute)

		res, err := r.db.ExecContext(ctx, insertVerdictSQL,
			strings.TrimSpace(v.Callsign),
			v.Owner,
			v.Model,
			at,
			at.Local().Format("2006-01-02"),
			v.MeanAltitudeM,
		)
		if err != nil {
			return written, fmt.Errorf("failed to insert verdict for %s: %w", v.Callsign, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			written = append(written, v)
		}
	}
	if len(written) > 0 {
		log.Printf("✓ Mirrored %d verdict(s) to database", len(written))
	}
	return written, nil
}

// ListByDate returns the verdicts recorded on day (YYYY-MM-DD), oldest first.
func (r *VerdictRepository) ListByDate(ctx context.Context, day string) ([]flight.Verdict, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT callsign, owner, model, detected_at, mean_altitude_m
		FROM loiter_verdicts
		WHERE detected_on = $1
		ORDER BY detected_at, callsign
	`, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}
	defer rows.Close()

	var verdicts []flight.Verdict
	for rows.Next() {
		v := flight.Verdict{IsLoitering: true}
		if err := rows.Scan(&v.Callsign, &v.Owner, &v.Model, &v.DetectedAt, &v.MeanAltitudeM); err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, rows.Err()
}

// ListDates returns the distinct days with verdicts, newest first.
// A non-positive limit returns every day.
func (r *VerdictRepository) ListDates(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT DISTINCT detected_on FROM loiter_verdicts ORDER BY detected_on DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dates: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan date: %w", err)
		}
		days = append(days, d.Format("2006-01-02"))
	}
	return days, rows.Err()
}
