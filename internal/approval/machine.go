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

// Package approval owns the candidate lifecycle:
//
//	queued -> sent -> published
//	                  rejected
//	queued/sent ----> expired
//
// Terminal candidates leave the pending store; only the archive and the
// counters remember them. A decision against an id that is unknown or
// already resolved is answered with ErrNotFound and changes nothing.
package approval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"khabarchin/internal/domain"
	"khabarchin/internal/metrics"
	"khabarchin/internal/store"
)

var ErrNotFound = errors.New("candidate not found or already resolved")

// Publisher pushes an approved candidate out and returns the posted
// message id.
type Publisher interface {
	Publish(ctx context.Context, c domain.Candidate) (int, error)
}

// Recorder keeps the audit trail of resolved candidates.
type Recorder interface {
	Record(c domain.Candidate) error
}

// Event is handed to the optional notify hook on every transition; the web
// dashboard feeds its live view from these.
type Event struct {
	Kind      string           `json:"kind"`
	Candidate domain.Candidate `json:"candidate"`
	At        time.Time        `json:"at"`
}

const (
	EventQueued    = "queued"
	EventSent      = "sent"
	EventPublished = "published"
	EventRejected  = "rejected"
	EventExpired   = "expired"
)

type Machine struct {
	mu     sync.Mutex
	store  *store.Store
	pub    Publisher
	rec    Recorder
	log    *zap.Logger
	met    *metrics.Metrics
	notify func(Event)
}

func NewMachine(st *store.Store, pub Publisher, rec Recorder, log *zap.Logger, met *metrics.Metrics) *Machine {
	return &Machine{store: st, pub: pub, rec: rec, log: log, met: met}
}

// OnEvent registers the transition hook. Call before the pipeline starts.
func (m *Machine) OnEvent(fn func(Event)) { m.notify = fn }

func (m *Machine) emit(kind string, c domain.Candidate) {
	if m.notify != nil {
		m.notify(Event{Kind: kind, Candidate: c, At: time.Now()})
	}
	if m.met != nil && kind != EventQueued {
		m.met.Candidates.WithLabelValues(string(c.Status)).Inc()
	}
}

// undecided fetches a candidate that can still move. Anything else is
// ErrNotFound, resolved ids included, so a double tap on an approve button
// cannot republish.
func (m *Machine) undecided(id string) (domain.Candidate, error) {
	c, ok := m.store.Get(id)
	if !ok || c.Status.Terminal() {
		return domain.Candidate{}, ErrNotFound
	}
	return c, nil
}

// MarkSent records that the approval prompt for id reached the admin chat.
func (m *Machine) MarkSent(id string, chatID int64, msgID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.undecided(id)
	if err != nil {
		return err
	}
	c.Status = domain.StatusSent
	c.SentAt = time.Now()
	c.PromptChatID = chatID
	c.PromptMsgID = msgID
	if err := m.store.Put(c); err != nil {
		return err
	}
	_ = m.store.Bump(func(s *store.Stats) { s.Sent++ })
	m.emit(EventSent, c)
	return nil
}

// Approve publishes the candidate. On publish failure the candidate keeps
// its current status, a later approve retries cleanly.
func (m *Machine) Approve(ctx context.Context, id, by string) (domain.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.undecided(id)
	if err != nil {
		return domain.Candidate{}, err
	}

	msgID, err := m.pub.Publish(ctx, c)
	if err != nil {
		m.log.Error("publish failed, candidate stays retryable",
			zap.String("id", id), zap.Error(err))
		return domain.Candidate{}, fmt.Errorf("publish %s: %w", id, err)
	}

	c.Status = domain.StatusPublished
	c.PublishedMsg = msgID
	c.ResolvedAt = time.Now()
	c.ResolvedBy = by
	m.resolve(c)
	_ = m.store.Bump(func(s *store.Stats) { s.Published++ })
	if m.met != nil {
		m.met.Published.Inc()
	}
	m.emit(EventPublished, c)
	return c, nil
}

func (m *Machine) Reject(id, by string) (domain.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.undecided(id)
	if err != nil {
		return domain.Candidate{}, err
	}
	c.Status = domain.StatusRejected
	c.ResolvedAt = time.Now()
	c.ResolvedBy = by
	m.resolve(c)
	_ = m.store.Bump(func(s *store.Stats) { s.Rejected++ })
	m.emit(EventRejected, c)
	return c, nil
}

// Expire resolves every pending candidate older than maxAge. Returns how
// many were swept.
func (m *Machine) Expire(maxAge time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	expired := 0
	for _, c := range m.store.Pending() {
		if c.Status.Terminal() || !c.CreatedAt.Before(cutoff) {
			continue
		}
		c.Status = domain.StatusExpired
		c.ResolvedAt = time.Now()
		c.ResolvedBy = "sweep"
		m.resolve(c)
		expired++
		m.emit(EventExpired, c)
	}
	if expired > 0 {
		err := m.store.Bump(func(s *store.Stats) { s.Expired += int64(expired) })
		if m.met != nil {
			m.met.Expired.Add(float64(expired))
		}
		return expired, err
	}
	return 0, nil
}

// resolve archives a terminal candidate and drops it from the store.
func (m *Machine) resolve(c domain.Candidate) {
	if m.rec != nil {
		if err := m.rec.Record(c); err != nil {
			m.log.Warn("archive write failed", zap.String("id", c.ID), zap.Error(err))
		}
	}
	if err := m.store.Delete(c.ID); err != nil {
		m.log.Warn("store delete failed", zap.String("id", c.ID), zap.Error(err))
	}
}
