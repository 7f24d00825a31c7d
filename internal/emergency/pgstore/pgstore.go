// Package pgstore provides a PostgreSQL implementation of emergency.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/beacon/internal/emergency"
	"github.com/linnemanlabs/beacon/internal/geo"
)

var tracer = otel.Tracer("github.com/linnemanlabs/beacon/internal/emergency/pgstore")

//go:embed schema.sql
var schema string

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

// Store persists subjects, locations, and alerts in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on an existing pool and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// CreateSubject inserts a new subject row. A duplicate phone number maps to
// emergency.ErrSubjectExists.
func (s *Store) CreateSubject(ctx context.Context, sub *emergency.Subject) error {
	ctx, span := tracer.Start(ctx, "pgstore.CreateSubject", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	contactsJSON, err := json.Marshal(sub.Contacts)
	if err != nil {
		return fmt.Errorf("marshal contacts: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO subjects (id, name, phone, email, contacts, medical_info, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sub.ID, sub.Name, sub.Phone, sub.Email, contactsJSON, sub.MedicalInfo, sub.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return emergency.ErrSubjectExists
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("insert subject: %w", err)
	}
	return nil
}

const subjectColumns = `id, name, phone, email, contacts, medical_info, created_at`

// GetSubjectByPhone looks a subject up by phone number.
func (s *Store) GetSubjectByPhone(ctx context.Context, phone string) (*emergency.Subject, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetSubjectByPhone", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE phone = $1`
	sub, err := scanSubjectRow(s.pool.QueryRow(ctx, query, phone))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if sub == nil {
		return nil, false, nil
	}
	return sub, true, nil
}

// GetSubjectByID looks a subject up by internal ID.
func (s *Store) GetSubjectByID(ctx context.Context, id string) (*emergency.Subject, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetSubjectByID", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE id = $1`
	sub, err := scanSubjectRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if sub == nil {
		return nil, false, nil
	}
	return sub, true, nil
}

// PutLastLocation upserts the subject's most recent fix.
func (s *Store) PutLastLocation(ctx context.Context, subjectID string, fix geo.Fix) error {
	ctx, span := tracer.Start(ctx, "pgstore.PutLastLocation", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO last_locations (subject_id, latitude, longitude, address, source, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (subject_id) DO UPDATE SET
			latitude    = EXCLUDED.latitude,
			longitude   = EXCLUDED.longitude,
			address     = EXCLUDED.address,
			source      = EXCLUDED.source,
			recorded_at = EXCLUDED.recorded_at`,
		subjectID, fix.Latitude, fix.Longitude, fix.Address, string(fix.Source), fix.Timestamp,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert last location: %w", err)
	}
	return nil
}

// GetLastLocation returns the subject's most recent fix, if any.
func (s *Store) GetLastLocation(ctx context.Context, subjectID string) (geo.Fix, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetLastLocation", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var (
		fix    geo.Fix
		source string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT latitude, longitude, address, source, recorded_at
		 FROM last_locations WHERE subject_id = $1`,
		subjectID,
	).Scan(&fix.Latitude, &fix.Longitude, &fix.Address, &source, &fix.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return geo.Fix{}, false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return geo.Fix{}, false, fmt.Errorf("scan last location: %w", err)
	}
	fix.Source = geo.Source(source)
	return fix, true, nil
}

// CreateAlert inserts a new alert record.
func (s *Store) CreateAlert(ctx context.Context, r *emergency.Record) error {
	ctx, span := tracer.Start(ctx, "pgstore.CreateAlert", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	var resolvedAt *time.Time
	if !r.ResolvedAt.IsZero() {
		resolvedAt = &r.ResolvedAt
	}

	var reportJSON []byte
	if r.Report != nil {
		var err error
		reportJSON, err = json.Marshal(r.Report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO alerts (
			id, subject_id, alert_type, latitude, longitude, address, source,
			located_at, message, status, created_at, resolved_at, report
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		r.ID, r.SubjectID, string(r.Type),
		r.Location.Latitude, r.Location.Longitude, r.Location.Address, string(r.Location.Source),
		r.Location.Timestamp, r.Message, string(r.Status), r.CreatedAt, resolvedAt, reportJSON,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

const alertColumns = `id, subject_id, alert_type, latitude, longitude, address, source,
	located_at, message, status, created_at, resolved_at, report`

// GetAlert retrieves an alert record by ID, including its report.
func (s *Store) GetAlert(ctx context.Context, id string) (*emergency.Record, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetAlert", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	r, err := scanAlertRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// UpdateAlertStatus moves an active alert to a terminal status. The UPDATE is
// conditioned on the active state so a racing transition cannot overwrite a
// record that already closed.
func (s *Store) UpdateAlertStatus(ctx context.Context, id string, status emergency.Status, at time.Time) error {
	ctx, span := tracer.Start(ctx, "pgstore.UpdateAlertStatus", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPDATE"),
	))
	defer span.End()

	tag, err := s.pool.Exec(ctx,
		`UPDATE alerts SET status = $2, resolved_at = $3 WHERE id = $1 AND status = $4`,
		id, string(status), at, string(emergency.StatusActive),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("update alert status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing updated. Distinguish a missing row from a lost race.
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM alerts WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("check alert exists: %w", err)
	}
	if !exists {
		return emergency.ErrAlertNotFound
	}
	return emergency.ErrStateConflict
}

// AttachReport stores the notification report for an alert.
func (s *Store) AttachReport(ctx context.Context, id string, report *emergency.Report) error {
	ctx, span := tracer.Start(ctx, "pgstore.AttachReport", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPDATE"),
	))
	defer span.End()

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE alerts SET report = $2 WHERE id = $1`,
		id, reportJSON,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("attach report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return emergency.ErrAlertNotFound
	}
	return nil
}

// ListActiveAlerts returns all active alerts, oldest first.
func (s *Store) ListActiveAlerts(ctx context.Context) ([]*emergency.Record, error) {
	ctx, span := tracer.Start(ctx, "pgstore.ListActiveAlerts", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE status = $1 ORDER BY created_at`
	rows, err := s.pool.Query(ctx, query, string(emergency.StatusActive))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query active alerts: %w", err)
	}
	defer rows.Close()

	var out []*emergency.Record
	for rows.Next() {
		r, err := scanAlert(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate active alerts: %w", err)
	}
	return out, nil
}

// scanSubjectRow scans a single subject row. Returns (nil, nil) when no row is
// found.
func scanSubjectRow(row pgx.Row) (*emergency.Subject, error) {
	var (
		sub          emergency.Subject
		contactsJSON []byte
	)

	err := row.Scan(&sub.ID, &sub.Name, &sub.Phone, &sub.Email, &contactsJSON, &sub.MedicalInfo, &sub.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan subject: %w", err)
	}

	if err := json.Unmarshal(contactsJSON, &sub.Contacts); err != nil {
		return nil, fmt.Errorf("unmarshal contacts: %w", err)
	}
	return &sub, nil
}

func scanAlertRow(row pgx.Row) (*emergency.Record, error) {
	r, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

func scanAlert(row pgx.Row) (*emergency.Record, error) {
	var (
		r          emergency.Record
		alertType  string
		source     string
		status     string
		resolvedAt *time.Time
		reportJSON []byte
	)

	err := row.Scan(
		&r.ID, &r.SubjectID, &alertType,
		&r.Location.Latitude, &r.Location.Longitude, &r.Location.Address, &source,
		&r.Location.Timestamp, &r.Message, &status, &r.CreatedAt, &resolvedAt, &reportJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}

	r.Type = emergency.AlertType(alertType)
	r.Location.Source = geo.Source(source)
	r.Status = emergency.Status(status)
	if resolvedAt != nil {
		r.ResolvedAt = *resolvedAt
	}
	if len(reportJSON) > 0 {
		if err := json.Unmarshal(reportJSON, &r.Report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
	}
	return &r, nil
}
