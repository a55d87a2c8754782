package core

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// SQLiteUnreadStore persists unread counters write-through: every mutation
// hits the database before returning. Persistence failures are logged and
// absorbed; unread bookkeeping must never take the client down.
type SQLiteUnreadStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteUnreadStore(db *sql.DB, logger *slog.Logger) *SQLiteUnreadStore {
	return &SQLiteUnreadStore{db: db, logger: logger}
}

func (s *SQLiteUnreadStore) Load() map[string]int {
	counts := make(map[string]int)
	rows, err := s.db.Query(`SELECT peer, count FROM unread_counts`)
	if err != nil {
		s.logger.Error(fmt.Sprintf("load unread counts: %v", err))
		return counts
	}
	defer rows.Close()
	for rows.Next() {
		var peer string
		var n int
		if err := rows.Scan(&peer, &n); err != nil {
			s.logger.Error(fmt.Sprintf("scan unread count: %v", err))
			continue
		}
		if n > 0 {
			counts[peer] = n
		}
	}
	return counts
}

func (s *SQLiteUnreadStore) Count(peer string) int {
	var n int
	err := s.db.QueryRow(`SELECT count FROM unread_counts WHERE peer = ?`, peer).Scan(&n)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error(fmt.Sprintf("count unread(%s): %v", peer, err))
		}
		return 0
	}
	return n
}

func (s *SQLiteUnreadStore) Increment(peer string) {
	_, err := s.db.Exec(`
		INSERT INTO unread_counts (peer, count) VALUES (?, 1)
		ON CONFLICT(peer) DO UPDATE SET count = count + 1`, peer)
	if err != nil {
		s.logger.Error(fmt.Sprintf("increment unread(%s): %v", peer, err))
	}
}

func (s *SQLiteUnreadStore) Reset(peer string) {
	_, err := s.db.Exec(`DELETE FROM unread_counts WHERE peer = ?`, peer)
	if err != nil {
		s.logger.Error(fmt.Sprintf("reset unread(%s): %v", peer, err))
	}
}
