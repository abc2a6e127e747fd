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

// Package queue paces delivery of approval prompts so the bot never floods
// the admin group. Bounded, FIFO, one drain goroutine. Priority only
// matters under congestion: when the backlog passes the threshold, entries
// below the floor are shed at the door.
package queue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"khabarchin/internal/metrics"
)

const (
	DefaultCapacity   = 30
	DefaultMinDelay   = 3 * time.Second
	DefaultCongestion = 20
	DefaultFloor      = 2 // under congestion only priorities 1..floor get in
)

// Entry is one pending delivery. The candidate itself stays in the pending
// store; the queue moves ids around.
type Entry struct {
	CandidateID string
	Priority    int
	EnqueuedAt  time.Time
}

// SendFunc delivers one entry. The queue never retries a failed send; the
// entry's pacing slot is spent either way.
type SendFunc func(ctx context.Context, e Entry) error

type Config struct {
	Capacity   int `json:"capacity"`
	MinDelayMS int `json:"min_delay_ms"`
	Congestion int `json:"congestion_threshold"`
	Floor      int `json:"priority_floor"`
}

func DefaultConfig() Config {
	return Config{
		Capacity:   DefaultCapacity,
		MinDelayMS: int(DefaultMinDelay / time.Millisecond),
		Congestion: DefaultCongestion,
		Floor:      DefaultFloor,
	}
}

func (c Config) minDelay() time.Duration {
	if c.MinDelayMS <= 0 {
		return DefaultMinDelay
	}
	return time.Duration(c.MinDelayMS) * time.Millisecond
}

type Queue struct {
	entries chan Entry
	limiter *rate.Limiter
	send    SendFunc
	log     *zap.Logger
	met     *metrics.Metrics

	cfg Config

	mu      sync.Mutex
	started bool
	stopped bool

	waitCtx   context.Context
	waitStop  context.CancelFunc
	done      chan struct{}
	stopOnce  sync.Once
	startOnce sync.Once
}

// New builds a stopped queue. The drain goroutine starts with the first
// accepted entry.
func New(cfg Config, send SendFunc, log *zap.Logger, met *metrics.Metrics) *Queue {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Congestion <= 0 || cfg.Congestion > cfg.Capacity {
		cfg.Congestion = DefaultCongestion
	}
	if cfg.Floor <= 0 {
		cfg.Floor = DefaultFloor
	}
	waitCtx, waitStop := context.WithCancel(context.Background())
	return &Queue{
		entries:  make(chan Entry, cfg.Capacity),
		limiter:  rate.NewLimiter(rate.Every(cfg.minDelay()), 1),
		send:     send,
		log:      log,
		met:      met,
		cfg:      cfg,
		waitCtx:  waitCtx,
		waitStop: waitStop,
		done:     make(chan struct{}),
	}
}

// Enqueue accepts an entry or reports false: either the queue is at
// capacity, or it is congested and the entry's priority is below the floor.
func (q *Queue) Enqueue(e Entry) bool {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return false
	}
	if len(q.entries) >= q.cfg.Congestion && e.Priority > q.cfg.Floor {
		q.mu.Unlock()
		q.log.Warn("queue congested, shedding",
			zap.String("candidate", e.CandidateID),
			zap.Int("priority", e.Priority))
		if q.met != nil {
			q.met.QueueShed.Inc()
		}
		return false
	}

	select {
	case q.entries <- e:
	default:
		q.mu.Unlock()
		return false
	}
	q.started = true
	q.mu.Unlock()

	q.startOnce.Do(func() { go q.drain() })
	if q.met != nil {
		q.met.QueueDepth.Set(float64(len(q.entries)))
	}
	return true
}

func (q *Queue) Depth() int {
	return len(q.entries)
}

// Stop shuts the queue down. An in-flight send is allowed to finish;
// entries still waiting are abandoned (their candidates stay queued in the
// store and survive the restart).
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	started := q.started
	q.mu.Unlock()

	q.stopOnce.Do(q.waitStop)
	if started {
		<-q.done
	}
}

func (q *Queue) drain() {
	defer close(q.done)
	for {
		select {
		case <-q.waitCtx.Done():
			return
		case e := <-q.entries:
			if q.met != nil {
				q.met.QueueDepth.Set(float64(len(q.entries)))
			}
			// Pacing slot is taken before the attempt and is not
			// refunded on failure.
			if err := q.limiter.Wait(q.waitCtx); err != nil {
				return
			}
			if err := q.send(context.Background(), e); err != nil {
				q.log.Error("delivery failed",
					zap.String("candidate", e.CandidateID),
					zap.Error(err))
				if q.met != nil {
					q.met.SendFailures.Inc()
				}
			}
		}
	}
}
