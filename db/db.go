// Package db keeps the optional PostgreSQL audit log: admin events and
// ingestion errors. Exams and results never depend on it.
package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crc-quiz-server/models"
)

// Audit actions recorded by the server.
const (
	ActionLogin          = "login"
	ActionSubmit         = "exam_submitted"
	ActionCasesReloaded  = "cases_reloaded"
	ActionResultsRebuilt = "results_rebuilt"
)

// AuditLogger records what users and admins did.
type AuditLogger interface {
	LogAdminEvent(ctx context.Context, actor, action, target, notes string)
	LogError(ctx context.Context, e models.ErrorLog)
	RecentEvents(ctx context.Context, limit int) ([]models.AdminEvent, error)
}

// ParseURL validates a PostgreSQL connection string.
func ParseURL(connString string) (*pgxpool.Config, error) {
	if connString == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	return cfg, nil
}

// InitDB initializes the PostgreSQL database connection pool
func InitDB(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := ParseURL(connString)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to PostgreSQL database!")
	return pool, nil
}

// CreateSchema sets up the audit tables.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS error_logs (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		source TEXT NOT NULL, -- e.g., "cases", "results"
		file_path TEXT,
		line_number INT,
		field_name TEXT,
		error_message TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS admin_events (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		action VARCHAR(255),
		actor VARCHAR(255), -- user id or 'system'
		target TEXT,        -- e.g., run id, workbook path
		notes TEXT
	);

	CREATE INDEX IF NOT EXISTS admin_events_timestamp_idx ON admin_events (timestamp DESC);
	`
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}
	return nil
}

// Postgres writes audit entries through a pgx pool. Write failures are
// logged and swallowed.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// LogAdminEvent adds an entry to the admin_events table
func (p *Postgres) LogAdminEvent(ctx context.Context, actor, action, target, notes string) {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO admin_events (action, actor, target, notes)
		VALUES ($1, $2, $3, $4)
	`, action, actor, target, notes)
	if err != nil {
		log.Printf("ERROR: Failed to log admin event to database: %v. Event: %s by %s on %s", err, action, actor, target)
	}
}

// LogError adds an entry to the error_logs table
func (p *Postgres) LogError(ctx context.Context, e models.ErrorLog) {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO error_logs (source, file_path, line_number, field_name, error_message)
		VALUES ($1, $2, $3, $4, $5)
	`, e.Source, e.FilePath, e.LineNumber, e.FieldName, e.ErrorMessage)
	if err != nil {
		log.Printf("ERROR: Failed to log error to database: %v. Original error: %s", err, e.ErrorMessage)
	}
}

// RecentEvents returns the newest admin events first.
func (p *Postgres) RecentEvents(ctx context.Context, limit int) ([]models.AdminEvent, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, timestamp, COALESCE(action, ''), COALESCE(actor, ''), COALESCE(target, ''), COALESCE(notes, '')
		FROM admin_events
		ORDER BY timestamp DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query admin events: %w", err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.AdminEvent, error) {
		var e models.AdminEvent
		err := row.Scan(&e.ID, &e.Timestamp, &e.Action, &e.Actor, &e.Target, &e.Notes)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan admin events: %w", err)
	}
	return events, nil
}

// Nop is used when no database is configured; it only writes to the log.
type Nop struct{}

func (Nop) LogAdminEvent(_ context.Context, actor, action, target, notes string) {
	log.Printf("Audit: %s by %s on %s (%s)", action, actor, target, notes)
}

func (Nop) LogError(_ context.Context, e models.ErrorLog) {
	log.Printf("Audit error from %s: %s", e.Source, e.ErrorMessage)
}

func (Nop) RecentEvents(context.Context, int) ([]models.AdminEvent, error) {
	return []models.AdminEvent{}, nil
}
