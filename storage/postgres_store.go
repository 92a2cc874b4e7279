package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dns-price-bot/models"
	"dns-price-bot/utils"

	_ "github.com/lib/pq"
)

// PostgresStore keeps all durable state in PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresStore opens the connection, pings the DB and creates the tables
func NewPostgresStore(ctx context.Context, connStr string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Minute * 5)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	logger.Info("Connected to PostgreSQL successfully")
	s := &PostgresStore{db: db, logger: logger}
	if err := s.CreateTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// CreateTables creates the state tables if they don't exist
func (s *PostgresStore) CreateTables(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	s.logger.Info("Tables 'tracked_items', 'quiet_hours', 'subscribers' are ready")
	return nil
}

// prices keep every digit the normalizer produced, so the column has no scale
const schema = `
	CREATE TABLE IF NOT EXISTS tracked_items (
		identity      TEXT PRIMARY KEY,
		title         TEXT          NOT NULL,
		price         NUMERIC       NOT NULL,
		price_display TEXT          NOT NULL DEFAULT '',
		image_ref     TEXT          NOT NULL DEFAULT '',
		first_seen    TIMESTAMPTZ   NOT NULL,
		last_updated  TIMESTAMPTZ   NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tracked_items_price ON tracked_items (price);

	CREATE TABLE IF NOT EXISTS quiet_hours (
		id              SMALLINT PRIMARY KEY CHECK (id = 1),
		enabled         BOOLEAN  NOT NULL DEFAULT FALSE,
		last_toggled_by BIGINT,
		last_toggled_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS subscribers (
		position BIGSERIAL,
		user_id  BIGINT PRIMARY KEY
	);
	`

func (s *PostgresStore) LoadItems(ctx context.Context) (map[string]*models.TrackedItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identity, title, price, price_display, image_ref, first_seen, last_updated
		FROM tracked_items`)
	if err != nil {
		return nil, &models.PersistenceError{Op: "load items", Err: err}
	}
	defer rows.Close()

	items := make(map[string]*models.TrackedItem)
	for rows.Next() {
		it := &models.TrackedItem{}
		if err := rows.Scan(&it.Identity, &it.Title, &it.Price, &it.PriceDisplay, &it.ImageRef, &it.FirstSeen, &it.LastUpdated); err != nil {
			return nil, &models.PersistenceError{Op: "scan item", Err: err}
		}
		items[it.Identity] = it
	}
	if err := rows.Err(); err != nil {
		return nil, &models.PersistenceError{Op: "load items", Err: err}
	}
	return items, nil
}

// SaveItems replaces the whole item table in a single transaction
func (s *PostgresStore) SaveItems(ctx context.Context, items map[string]*models.TrackedItem) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &models.PersistenceError{Op: "begin transaction", Err: err}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM tracked_items`); err != nil {
		return &models.PersistenceError{Op: "clear items", Err: err}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tracked_items (identity, title, price, price_display, image_ref, first_seen, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return &models.PersistenceError{Op: "prepare statement", Err: err}
	}
	defer stmt.Close()

	for id, it := range items {
		if _, err = stmt.ExecContext(ctx, id, it.Title, it.Price, it.PriceDisplay, it.ImageRef, it.FirstSeen, it.LastUpdated); err != nil {
			return &models.PersistenceError{Op: "insert item " + id, Err: err}
		}
	}

	if err = tx.Commit(); err != nil {
		return &models.PersistenceError{Op: "commit transaction", Err: err}
	}
	s.logger.Debug("Stored %d tracked items in PostgreSQL", len(items))
	return nil
}

func (s *PostgresStore) LoadQuietHours(ctx context.Context) (*models.QuietHoursState, error) {
	var (
		state models.QuietHoursState
		by    sql.NullInt64
		at    sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT enabled, last_toggled_by, last_toggled_at FROM quiet_hours WHERE id = 1`,
	).Scan(&state.Enabled, &by, &at)
	if err == sql.ErrNoRows {
		return &state, nil
	}
	if err != nil {
		return nil, &models.PersistenceError{Op: "load quiet hours", Err: err}
	}
	state.LastToggledBy = by.Int64
	if at.Valid {
		t := at.Time
		state.LastToggledAt = &t
	}
	return &state, nil
}

func (s *PostgresStore) SaveQuietHours(ctx context.Context, state *models.QuietHoursState) error {
	var at sql.NullTime
	if state.LastToggledAt != nil {
		at = sql.NullTime{Time: *state.LastToggledAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quiet_hours (id, enabled, last_toggled_by, last_toggled_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET enabled = EXCLUDED.enabled,
		    last_toggled_by = EXCLUDED.last_toggled_by,
		    last_toggled_at = EXCLUDED.last_toggled_at
	`, state.Enabled, sql.NullInt64{Int64: state.LastToggledBy, Valid: state.LastToggledBy != 0}, at)
	if err != nil {
		return &models.PersistenceError{Op: "save quiet hours", Err: err}
	}
	return nil
}

func (s *PostgresStore) LoadSubscribers(ctx context.Context) (*models.SubscriberSet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM subscribers ORDER BY position`)
	if err != nil {
		return nil, &models.PersistenceError{Op: "load subscribers", Err: err}
	}
	defer rows.Close()

	set := &models.SubscriberSet{Users: []int64{}}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, &models.PersistenceError{Op: "scan subscriber", Err: err}
		}
		set.Users = append(set.Users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.PersistenceError{Op: "load subscribers", Err: err}
	}
	return set, nil
}

// SaveSubscribers inserts new ids; existing rows keep their position
func (s *PostgresStore) SaveSubscribers(ctx context.Context, set *models.SubscriberSet) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &models.PersistenceError{Op: "begin transaction", Err: err}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, id := range set.Users {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO subscribers (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, id); err != nil {
			return &models.PersistenceError{Op: "insert subscriber", Err: err}
		}
	}
	if err = tx.Commit(); err != nil {
		return &models.PersistenceError{Op: "commit transaction", Err: err}
	}
	return nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
