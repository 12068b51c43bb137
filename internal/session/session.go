// Package session keeps the device-local "logged in" flag in a sqlite file so
// it survives restarts of the client process.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

const loggedInKey = "logged_in"

var ErrClosed = errors.New("session store closed")

type Store struct {
	db *sql.DB

	mu       sync.Mutex
	watchers map[chan struct{}]struct{}
	done     chan struct{}
	closed   bool
	err      error
}

// Open opens or creates the flag file at path. Writes are synced to disk
// before Set returns.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS session_flags (
			key   TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create session table: %w", err)
	}

	return &Store{
		db:       db,
		watchers: map[chan struct{}]struct{}{},
		done:     make(chan struct{}),
	}, nil
}

// LoggedIn reads the persisted flag. An unset flag reads as false.
func (s *Store) LoggedIn(ctx context.Context) (bool, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT value FROM session_flags WHERE key = ?`, loggedInKey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Get streams the flag: the persisted value first, then the value after
// every committed Set. The channel is closed when ctx ends, the store is
// closed, or a read fails; in the last case Err reports the failure.
func (s *Store) Get(ctx context.Context) <-chan bool {
	out := make(chan bool)

	signal := make(chan struct{}, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(out)
		return out
	}
	s.watchers[signal] = struct{}{}
	s.mu.Unlock()

	go func() {
		defer close(out)
		defer func() {
			s.mu.Lock()
			delete(s.watchers, signal)
			s.mu.Unlock()
		}()

		emit := func() bool {
			v, err := s.LoggedIn(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.mu.Lock()
					s.err = err
					s.mu.Unlock()
				}
				return false
			}
			select {
			case out <- v:
				return true
			case <-ctx.Done():
				return false
			case <-s.done:
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-signal:
				if !emit() {
					return
				}
			}
		}
	}()
	return out
}

// Err returns the read error that most recently ended a Get stream.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Set commits the flag and then wakes every watcher.
func (s *Store) Set(ctx context.Context, loggedIn bool) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	v := 0
	if loggedIn {
		v = 1
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO session_flags (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, loggedInKey, v); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.mu.Lock()
	for w := range s.watchers {
		select {
		case w <- struct{}{}:
		default:
		}
	}
	s.mu.Unlock()
	return nil
}

// Close ends all Get streams and closes the file.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()
	return s.db.Close()
}
