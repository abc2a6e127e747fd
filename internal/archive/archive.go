/*
   Khabarchin - Telegram news watchdog and approval pipeline
   Copyright (C) 2025  Khabarchin contributors

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package archive is the write-only audit trail: every candidate that
// reaches a terminal state gets a row. Recovery state lives in the pending
// store, not here; losing the archive loses history, nothing else.
package archive

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"khabarchin/internal/domain"
)

type Entry struct {
	ID           string   `db:"id"`
	Channel      string   `db:"channel"`
	MessageID    int      `db:"message_id"`
	Segment      int      `db:"segment"`
	Text         string   `db:"text"`
	Category     string   `db:"category"`
	LexicalScore int      `db:"lexical_score"`
	Relevance    int      `db:"relevance"`
	Priority     int      `db:"priority"`
	Topics       []string `db:"topics"`
	Status       string   `db:"status"`
	Note         string   `db:"note"`
	ResolvedBy   string   `db:"resolved_by"`
	CreatedAt    int64    `db:"created_at"`   // Unix timestamp
	ResolvedAt   int64    `db:"resolved_at"`  // Unix timestamp
	PublishedMsg int      `db:"published_msg"`
}

type DB struct {
	*sql.DB
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_journal=WAL&_timeout=5000&_fk=true")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS resolved (
            id TEXT PRIMARY KEY,
            channel TEXT NOT NULL,
            message_id INTEGER NOT NULL,
            segment INTEGER DEFAULT 0,
            text TEXT NOT NULL,
            category TEXT,
            lexical_score INTEGER DEFAULT 0,
            relevance INTEGER DEFAULT 0,
            priority INTEGER DEFAULT 5,
            topics TEXT DEFAULT '[]',
            status TEXT NOT NULL,
            note TEXT,
            resolved_by TEXT,
            created_at INTEGER NOT NULL,
            resolved_at INTEGER NOT NULL,
            published_msg INTEGER DEFAULT 0
        );
        CREATE INDEX IF NOT EXISTS idx_resolved_time ON resolved(resolved_at);
        CREATE INDEX IF NOT EXISTS idx_resolved_status ON resolved(status);
    `)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// Record stores a terminal candidate. Re-recording the same id overwrites,
// a retried publish must not fail on a leftover row.
func (db *DB) Record(c domain.Candidate) error {
	topicsJSON, err := json.Marshal(c.Topics)
	if err != nil {
		return err
	}

	_, err = db.Exec(`INSERT OR REPLACE INTO resolved(
        id, channel, message_id, segment, text, category,
        lexical_score, relevance, priority, topics, status, note,
        resolved_by, created_at, resolved_at, published_msg
    ) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.Channel,
		c.MessageID,
		c.Segment,
		c.Text,
		string(c.Category),
		c.LexicalScore,
		c.Relevance,
		c.Priority,
		topicsJSON,
		string(c.Status),
		c.Note,
		c.ResolvedBy,
		c.CreatedAt.Unix(),
		c.ResolvedAt.Unix(),
		c.PublishedMsg,
	)
	return err
}

// Recent returns the latest resolutions, newest first.
func (db *DB) Recent(limit int) ([]Entry, error) {
	rows, err := db.Query(`SELECT id, channel, message_id, segment, text,
        category, lexical_score, relevance, priority, topics, status, note,
        resolved_by, created_at, resolved_at, published_msg
        FROM resolved ORDER BY resolved_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Since returns resolutions after the cutoff, oldest first.
func (db *DB) Since(cutoff time.Time) ([]Entry, error) {
	rows, err := db.Query(`SELECT id, channel, message_id, segment, text,
        category, lexical_score, relevance, priority, topics, status, note,
        resolved_by, created_at, resolved_at, published_msg
        FROM resolved WHERE resolved_at >= ? ORDER BY resolved_at ASC`,
		cutoff.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var topicsJSON string
		err := rows.Scan(
			&e.ID, &e.Channel, &e.MessageID, &e.Segment, &e.Text,
			&e.Category, &e.LexicalScore, &e.Relevance, &e.Priority,
			&topicsJSON, &e.Status, &e.Note, &e.ResolvedBy,
			&e.CreatedAt, &e.ResolvedAt, &e.PublishedMsg,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(topicsJSON), &e.Topics); err != nil {
			e.Topics = nil
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByStatus powers the stats command.
func (db *DB) CountByStatus() (map[string]int64, error) {
	rows, err := db.Query(`SELECT status, COUNT(*) FROM resolved GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
