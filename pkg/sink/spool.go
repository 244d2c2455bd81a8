package sink

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrSpoolEmpty indicates there is no spooled batch to deliver.
var ErrSpoolEmpty = errors.New("spool is empty")

// Spool is a durable on-disk queue for batches that could not be
// delivered. Batches are stored CBOR-encoded and replayed oldest-first.
type Spool struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenSpool opens (creating if needed) the spool database at path.
// Use ":memory:" for an ephemeral spool.
func OpenSpool(path string) (*Spool, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sink: opening spool: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sink: setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS batches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at INTEGER NOT NULL,
		data BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sink: creating spool table: %w", err)
	}

	return &Spool{db: db}, nil
}

func (s *Spool) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put appends a batch to the spool.
func (s *Spool) Put(b *Batch) error {
	data, err := MarshalBatch(b)
	if err != nil {
		return fmt.Errorf("sink: encoding spooled batch: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		"INSERT INTO batches (created_at, data) VALUES (?, ?)",
		time.Now().UnixNano(), data,
	)
	if err != nil {
		return fmt.Errorf("sink: spooling batch: %w", err)
	}
	return nil
}

// Next returns the oldest spooled batch and its spool id. The batch stays
// in the spool until Ack'd, so a crash between delivery and Ack replays
// it rather than losing it.
func (s *Spool) Next() (*Batch, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	var data []byte
	err := s.db.QueryRow(
		"SELECT id, data FROM batches ORDER BY id LIMIT 1",
	).Scan(&id, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, ErrSpoolEmpty
		}
		return nil, 0, fmt.Errorf("sink: reading spool: %w", err)
	}

	b, err := UnmarshalBatch(data)
	if err != nil {
		return nil, 0, err
	}
	return b, id, nil
}

// Ack removes a delivered batch.
func (s *Spool) Ack(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM batches WHERE id = ?", id); err != nil {
		return fmt.Errorf("sink: acking batch %d: %w", id, err)
	}
	return nil
}

// Len returns the number of spooled batches.
func (s *Spool) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM batches").Scan(&n); err != nil {
		return 0, fmt.Errorf("sink: counting spool: %w", err)
	}
	return n, nil
}
