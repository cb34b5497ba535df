package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/kapu/chess-driller/internal/domain"
)

var ErrDuplicateResult = errors.New("drill result already recorded")

// Repository stores finished drill sessions so progress can be reviewed.
type Repository interface {
	InsertResult(ctx context.Context, result *domain.DrillResult) (int64, error)
	RecentResults(ctx context.Context, limit int) ([]*domain.DrillResult, error)
	Close() error
}

type repository struct {
	db *sql.DB
}

// NewRepository opens a Postgres-backed repository and ensures its schema.
func NewRepository(databaseURL string) (Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure drill schema: %w", err)
	}
	return &repository{db: db}, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	const q = `
		CREATE TABLE IF NOT EXISTS drill_results (
			id           BIGSERIAL PRIMARY KEY,
			session_uuid TEXT NOT NULL UNIQUE,
			color        TEXT NOT NULL,
			opening      JSONB NOT NULL DEFAULT '[]'::jsonb,
			plies_deep   INT NOT NULL,
			deviations   INT NOT NULL,
			outcome      TEXT NOT NULL,
			started_at   TIMESTAMPTZ NOT NULL,
			ended_at     TIMESTAMPTZ NOT NULL
		)`
	_, err := db.ExecContext(ctx, q)
	return err
}

func (r *repository) InsertResult(ctx context.Context, result *domain.DrillResult) (int64, error) {
	if result == nil {
		return 0, fmt.Errorf("nil drill result payload")
	}
	opening, err := json.Marshal(result.Opening)
	if err != nil {
		return 0, fmt.Errorf("marshal opening: %w", err)
	}

	const q = `
		INSERT INTO drill_results (
			session_uuid, color, opening, plies_deep, deviations, outcome, started_at, ended_at
		)
		VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7, $8)
		ON CONFLICT (session_uuid) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(ctx, q,
		result.SessionUUID,
		result.Color,
		string(opening),
		result.PliesDeep,
		result.Deviations,
		result.Outcome,
		result.StartedAt,
		result.EndedAt,
	).Scan(&id)
	if err == sql.ErrNoRows || (err == nil && !id.Valid) {
		return 0, ErrDuplicateResult
	}
	if err != nil {
		return 0, fmt.Errorf("insert drill result: %w", err)
	}
	return id.Int64, nil
}

func (r *repository) RecentResults(ctx context.Context, limit int) ([]*domain.DrillResult, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
		SELECT id, session_uuid, color, opening, plies_deep, deviations, outcome, started_at, ended_at
		FROM drill_results
		ORDER BY ended_at DESC, id DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query drill results: %w", err)
	}
	defer rows.Close()

	var out []*domain.DrillResult
	for rows.Next() {
		var item domain.DrillResult
		var opening []byte
		if err := rows.Scan(
			&item.ID,
			&item.SessionUUID,
			&item.Color,
			&opening,
			&item.PliesDeep,
			&item.Deviations,
			&item.Outcome,
			&item.StartedAt,
			&item.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("scan drill result: %w", err)
		}
		if len(opening) > 0 {
			if err := json.Unmarshal(opening, &item.Opening); err != nil {
				return nil, fmt.Errorf("unmarshal opening: %w", err)
			}
		}
		out = append(out, &item)
	}
	return out, rows.Err()
}

func (r *repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
