package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// Cursor records how far into a transcript file ingestion has progressed, so
// repeated sweeps only process the tail.
type Cursor struct {
	Offset    int64     `json:"offset"`
	Line      int       `json:"line"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CursorStore persists ingestion cursors in a local badger database, keyed by
// transcript path. Badger gives crash-safe single-key updates without pulling
// the cursors into the fact stores, which stay scoped to beliefs.
type CursorStore struct {
	db *badger.DB
}

// OpenCursorStore opens (creating if needed) the cursor database at dir.
func OpenCursorStore(dir string) (*CursorStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cursor store: %w", err)
	}
	return &CursorStore{db: db}, nil
}

func cursorKey(transcriptPath string) []byte {
	return []byte("cursor:" + transcriptPath)
}

// Get returns the cursor for a transcript, or a zero cursor if none exists.
func (c *CursorStore) Get(transcriptPath string) (Cursor, error) {
	var cur Cursor
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cursorKey(transcriptPath))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cur)
		})
	})
	if err != nil {
		return Cursor{}, fmt.Errorf("failed to load cursor: %w", err)
	}
	return cur, nil
}

// Put stores the cursor for a transcript.
func (c *CursorStore) Put(transcriptPath string, cur Cursor) error {
	cur.UpdatedAt = time.Now().UTC()
	val, err := json.Marshal(cur)
	if err != nil {
		return fmt.Errorf("failed to encode cursor: %w", err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cursorKey(transcriptPath), val)
	})
	if err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return nil
}

// Delete removes the cursor for a transcript.
func (c *CursorStore) Delete(transcriptPath string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(cursorKey(transcriptPath))
	})
	if err != nil {
		return fmt.Errorf("failed to delete cursor: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *CursorStore) Close() error {
	return c.db.Close()
}
