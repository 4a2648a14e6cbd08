package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/harvestpath/harvestpath/pkg/domain/journey"
	"github.com/harvestpath/harvestpath/pkg/domain/ledger"
)

// SQLiteStore keeps journeys and ledger entries in a single SQLite database.
type SQLiteStore struct {
	DB  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection keeps writes serialised within the process.
	db.SetMaxOpenConns(1)

	queries := []string{
		`CREATE TABLE IF NOT EXISTS journeys (
			user_id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL,
			user_id TEXT NOT NULL,
			points INTEGER NOT NULL,
			eco_points INTEGER NOT NULL,
			reason TEXT,
			journey_id TEXT,
			step_id TEXT,
			balance_points INTEGER NOT NULL,
			balance_eco_points INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE(user_id, key)
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &SQLiteStore{DB: db, now: time.Now}, nil
}

func (s *SQLiteStore) LoadAll(ctx context.Context, userID string) ([]journey.Journey, error) {
	if err := journey.ValidateUserID(userID); err != nil {
		return nil, err
	}

	var payload string
	err := s.DB.QueryRowContext(ctx, `SELECT payload FROM journeys WHERE user_id = ?`, userID).Scan(&payload)
	if err == sql.ErrNoRows {
		return []journey.Journey{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query journeys: %w", err)
	}

	if err := validateDocument(journeysSchemaLoader, "journeys", []byte(payload)); err != nil {
		return nil, err
	}
	var journeys []journey.Journey
	if err := json.Unmarshal([]byte(payload), &journeys); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journeys: %w", err)
	}
	if journeys == nil {
		journeys = []journey.Journey{}
	}
	return journeys, nil
}

func (s *SQLiteStore) SaveAll(ctx context.Context, userID string, journeys []journey.Journey) error {
	if err := journey.ValidateUserID(userID); err != nil {
		return err
	}
	if journeys == nil {
		journeys = []journey.Journey{}
	}
	payload, err := json.Marshal(journeys)
	if err != nil {
		return fmt.Errorf("failed to marshal journeys: %w", err)
	}

	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO journeys (user_id, payload, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(user_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		userID, string(payload))
	if err != nil {
		return fmt.Errorf("save journeys: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Apply(ctx context.Context, g ledger.Grant) (applied bool, err error) {
	if err := g.Validate(); err != nil {
		return false, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM ledger_entries WHERE user_id = ? AND key = ?`, g.UserID, g.Key).Scan(&exists); err != nil {
		return false, fmt.Errorf("check ledger key: %w", err)
	}
	if exists > 0 {
		return false, tx.Commit()
	}

	var points, eco int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(points), 0), COALESCE(SUM(eco_points), 0) FROM ledger_entries WHERE user_id = ?`,
		g.UserID).Scan(&points, &eco); err != nil {
		return false, fmt.Errorf("sum ledger: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (key, user_id, points, eco_points, reason, journey_id, step_id, balance_points, balance_eco_points, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.Key, g.UserID, g.Points, g.EcoPoints, g.Reason, g.JourneyID, g.StepID,
		points+g.Points, eco+g.EcoPoints, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, fmt.Errorf("insert ledger entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) Balance(ctx context.Context, userID string) (ledger.Balance, error) {
	b := ledger.Balance{UserID: userID}
	err := s.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(points), 0), COALESCE(SUM(eco_points), 0) FROM ledger_entries WHERE user_id = ?`,
		userID).Scan(&b.Points, &b.EcoPoints)
	if err != nil {
		return ledger.Balance{}, fmt.Errorf("query balance: %w", err)
	}
	return b, nil
}

func (s *SQLiteStore) Entries(ctx context.Context, userID string) ([]ledger.Entry, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT key, user_id, points, eco_points, COALESCE(reason, ''), COALESCE(journey_id, ''), COALESCE(step_id, ''),
		        balance_points, balance_eco_points, created_at
		 FROM ledger_entries WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var entries []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		var created string
		if err := rows.Scan(&e.Key, &e.UserID, &e.Points, &e.EcoPoints, &e.Reason, &e.JourneyID, &e.StepID,
			&e.BalancePoints, &e.BalanceEcoPoints, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.Timestamp = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.DB.Close()
}
