package state

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ivanoskov/fintracker/internal/config"
	"github.com/ivanoskov/fintracker/internal/logger"
	"github.com/ivanoskov/fintracker/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type stateRow struct {
	model.UserState
	RawContext string `db:"context"`
}

// PostgresStore keeps snapshots in the user_states table.
type PostgresStore struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

func NewPostgresStore(db *sqlx.DB, ttl time.Duration) *PostgresStore {
	return &PostgresStore{db: db, ttl: ttl, now: time.Now}
}

// Connect opens the database, configures the pool and verifies connectivity.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		logger.Error(ctx, "db", "db.connect",
			slog.String("host", cfg.Host),
			slog.String("db", cfg.Name),
			slog.Duration("duration", logger.Took(start)),
			logger.Err(err),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)

	logger.Info(ctx, "db", "db.connect",
		slog.String("status", "ok"),
		slog.String("host", cfg.Host),
		slog.String("db", cfg.Name),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.Took(start)),
	)
	return db, nil
}

// Migrate applies the embedded up migrations to the database at dsn.
func Migrate(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	fromVer, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	switch {
	case upErr == nil:
	case errors.Is(upErr, migrate.ErrNoChange):
	default:
		return fmt.Errorf("migration execution failed: %w", upErr)
	}
	toVer, _, _ := m.Version()

	logger.Info(context.Background(), "db", "db.migrate",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, userID int64) (Snapshot, error) {
	var row stateRow
	err := p.db.GetContext(ctx, &row,
		`SELECT user_id, state, context, updated_at FROM user_states WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return IdleSnapshot(), nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to get user state: %w", err)
	}
	if expired(row.UpdatedAt, p.ttl, p.now()) {
		return IdleSnapshot(), nil
	}
	if err := json.Unmarshal([]byte(row.RawContext), &row.Context); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse user state context: %w", err)
	}
	return fromRow(row.UserState), nil
}

func (p *PostgresStore) Set(ctx context.Context, userID int64, st State) error {
	if st == Idle {
		return p.Clear(ctx, userID)
	}
	snap, err := p.Get(ctx, userID)
	if err != nil {
		return err
	}
	return p.save(ctx, userID, st, snap.Context)
}

func (p *PostgresStore) UpdateContext(ctx context.Context, userID int64, partial map[string]string) error {
	snap, err := p.Get(ctx, userID)
	if err != nil {
		return err
	}
	for k, v := range partial {
		snap.Context[k] = v
	}
	return p.save(ctx, userID, snap.State, snap.Context)
}

func (p *PostgresStore) Clear(ctx context.Context, userID int64) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM user_states WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear user state: %w", err)
	}
	return nil
}

// Purge deletes rows older than the ttl and returns how many were removed.
func (p *PostgresStore) Purge(ctx context.Context) (int64, error) {
	if p.ttl <= 0 {
		return 0, nil
	}
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM user_states WHERE updated_at < $1`, p.now().Add(-p.ttl).UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge user states: %w", err)
	}
	return res.RowsAffected()
}

func (p *PostgresStore) save(ctx context.Context, userID int64, st State, data map[string]string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode user state context: %w", err)
	}
	row := stateRow{
		UserState: model.UserState{
			UserID:    userID,
			State:     string(st),
			UpdatedAt: p.now().UTC(),
		},
		RawContext: string(raw),
	}
	_, err = p.db.NamedExecContext(ctx, `
		INSERT INTO user_states (user_id, state, context, updated_at)
		VALUES (:user_id, :state, :context, :updated_at)
		ON CONFLICT (user_id) DO UPDATE
		SET state = EXCLUDED.state, context = EXCLUDED.context, updated_at = EXCLUDED.updated_at`, row)
	if err != nil {
		return fmt.Errorf("failed to save user state: %w", err)
	}
	return nil
}
