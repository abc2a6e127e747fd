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

// Package store keeps the pipeline's working state in one JSON document:
// pending candidates, the seen set, and running totals. Every mutation is
// written through to disk, the previous file is rotated to a backup first,
// so an interrupted write loses at most the last mutation.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"khabarchin/internal/domain"
)

const (
	formatVersion = 1
	backupSuffix  = ".bak"
)

var ErrNotFound = errors.New("candidate not found")

// Stats are lifetime counters, persisted with the document.
type Stats struct {
	Received  int64 `json:"received"`
	Accepted  int64 `json:"accepted"`
	Sent      int64 `json:"sent"`
	Published int64 `json:"published"`
	Rejected  int64 `json:"rejected"`
	Expired   int64 `json:"expired"`
}

type document struct {
	Pending     map[string]domain.Candidate `json:"pending"`
	Seen        []string                    `json:"seen"`
	Stats       Stats                       `json:"stats"`
	LastUpdated time.Time                   `json:"last_updated"`
}

type versioned struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

type Store struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger

	pending map[string]domain.Candidate
	seen    map[string]time.Time
	stats   Stats
}

// Open loads state from path, falling back to the backup when the primary
// is unreadable or corrupt, and to an empty document when both are gone.
func Open(path string, log *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: empty path")
	}
	s := &Store{
		path:    path,
		log:     log,
		pending: make(map[string]domain.Candidate),
		seen:    make(map[string]time.Time),
	}

	doc, err := readDocument(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("state file unreadable, trying backup",
				zap.String("path", path), zap.Error(err))
		}
		doc, err = readDocument(path + backupSuffix)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Warn("backup unreadable, starting empty", zap.Error(err))
			}
			return s, nil
		}
		log.Info("state recovered from backup")
	}

	for id, c := range doc.Pending {
		s.pending[id] = c
	}
	for _, raw := range doc.Seen {
		key, at := decodeSeen(raw)
		s.seen[key] = at
	}
	s.stats = doc.Stats
	return s, nil
}

func readDocument(path string) (document, error) {
	var doc document
	raw, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}

	// Current files carry a version envelope; first-generation files were
	// the bare document. Both load.
	var env versioned
	if err := json.Unmarshal(raw, &env); err == nil && env.Version > 0 && len(env.Data) > 0 {
		raw = env.Data
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("decode state: %w", err)
	}
	if doc.Pending == nil {
		doc.Pending = make(map[string]domain.Candidate)
	}
	return doc, nil
}

// saveLocked rotates the current file to .bak and writes the new document.
// Callers hold s.mu.
func (s *Store) saveLocked() error {
	doc := document{
		Pending:     s.pending,
		Seen:        encodeSeen(s.seen),
		Stats:       s.stats,
		LastUpdated: time.Now(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(versioned{Version: formatVersion, Data: data}, "", "\t")
	if err != nil {
		return err
	}

	if _, err := os.Stat(s.path); err == nil {
		if err := os.Rename(s.path, s.path+backupSuffix); err != nil {
			return fmt.Errorf("rotate backup: %w", err)
		}
	}
	if err := os.WriteFile(s.path, payload, 0644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// Flush forces a write of the current state, used on shutdown.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) Put(c domain.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[c.ID] = c
	return s.saveLocked()
}

func (s *Store) Get(id string) (domain.Candidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.pending[id]
	return c, ok
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; !ok {
		return ErrNotFound
	}
	delete(s.pending, id)
	return s.saveLocked()
}

// Pending returns the working set, oldest first (candidate ids sort by
// creation time).
func (s *Store) Pending() []domain.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Candidate, 0, len(s.pending))
	for _, c := range s.pending {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MarkSeen records a source message key. Growth is bounded by PruneSeen.
func (s *Store) MarkSeen(key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[key] = at
	return s.saveLocked()
}

func (s *Store) IsSeen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key]
	return ok
}

func (s *Store) SeenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// PruneSeen drops seen entries older than cutoff and reports how many went.
func (s *Store) PruneSeen(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, at := range s.seen {
		if at.Before(cutoff) {
			delete(s.seen, key)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, s.saveLocked()
}

// Bump applies a stats mutation and persists it.
func (s *Store) Bump(mut func(*Stats)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mut(&s.stats)
	return s.saveLocked()
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Seen keys persist as "channel:message_id@unix". First-generation files
// lacked the timestamp; those age out relative to load time.
func encodeSeen(seen map[string]time.Time) []string {
	out := make([]string, 0, len(seen))
	for key, at := range seen {
		out = append(out, fmt.Sprintf("%s@%d", key, at.Unix()))
	}
	return out
}

func decodeSeen(raw string) (string, time.Time) {
	i := strings.LastIndexByte(raw, '@')
	if i < 0 {
		return raw, time.Now()
	}
	ts, err := strconv.ParseInt(raw[i+1:], 10, 64)
	if err != nil {
		return raw, time.Now()
	}
	return raw[:i], time.Unix(ts, 0)
}
