package store

import (
	"database/sql"
	"fmt"
	"log"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/peetj/btc-tracker/internal/model"
)

// SQLiteStore persists fetched daily records to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}

	// WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, &StorageError{Op: "open", Err: fmt.Errorf("set WAL mode: %w", err)}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, &StorageError{Op: "migrate", Err: err}
	}

	log.Printf("[INFO] sqlite store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS daily_prices (
		timestamp INTEGER PRIMARY KEY,
		open      REAL NOT NULL,
		high      REAL NOT NULL,
		low       REAL NOT NULL,
		close     REAL NOT NULL,
		volume    REAL NOT NULL
	)`)
	return err
}

// Put upserts a single record by timestamp.
func (s *SQLiteStore) Put(rec model.DailyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT OR REPLACE INTO daily_prices
		(timestamp, open, high, low, close, volume) VALUES (?,?,?,?,?,?)`,
		rec.Timestamp, rec.Open, rec.High, rec.Low, rec.Close, rec.Volume)
	if err != nil {
		return &StorageError{Op: "put", Err: err}
	}
	return nil
}

// PutAll upserts a batch in one transaction; on any failure the whole batch
// is rolled back.
func (s *SQLiteStore) PutAll(recs []model.DailyRecord) error {
	if len(recs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return &StorageError{Op: "putAll", Err: err}
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO daily_prices
		(timestamp, open, high, low, close, volume) VALUES (?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return &StorageError{Op: "putAll", Err: err}
	}
	defer stmt.Close()

	for _, rec := range recs {
		if _, err := stmt.Exec(rec.Timestamp, rec.Open, rec.High, rec.Low, rec.Close, rec.Volume); err != nil {
			tx.Rollback()
			return &StorageError{Op: "putAll", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "putAll", Err: err}
	}
	return nil
}

// GetAll returns every stored record, unordered.
func (s *SQLiteStore) GetAll() ([]model.DailyRecord, error) {
	rows, err := s.db.Query(`SELECT timestamp, open, high, low, close, volume FROM daily_prices`)
	if err != nil {
		return nil, &StorageError{Op: "getAll", Err: err}
	}
	defer rows.Close()

	var out []model.DailyRecord
	for rows.Next() {
		var rec model.DailyRecord
		if err := rows.Scan(&rec.Timestamp, &rec.Open, &rec.High, &rec.Low, &rec.Close, &rec.Volume); err != nil {
			return nil, &StorageError{Op: "getAll", Err: err}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "getAll", Err: err}
	}
	return out, nil
}

// Clear removes all entries.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM daily_prices`); err != nil {
		return &StorageError{Op: "clear", Err: err}
	}
	return nil
}

// Stats reports count and timestamp bounds over the stored records.
func (s *SQLiteStore) Stats() (Stats, error) {
	var st Stats
	var first, last sql.NullInt64
	err := s.db.QueryRow(`SELECT COUNT(*), MIN(timestamp), MAX(timestamp) FROM daily_prices`).
		Scan(&st.Count, &first, &last)
	if err != nil {
		return Stats{}, &StorageError{Op: "stats", Err: err}
	}
	st.FirstTimestamp = first.Int64
	st.LastTimestamp = last.Int64
	return st, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	log.Println("[INFO] closing sqlite store")
	return s.db.Close()
}
