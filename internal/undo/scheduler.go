// Package undo delays destructive actions so an admin can take them back.
// Pending actions live in process memory; a restart runs nothing that was
// still pending unless Shutdown flushed it first.
package undo

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maplecart/storefront-backend/pkg/logger"
)

// Action is the deferred work. It receives a detached context.
type Action func(ctx context.Context) error

type pending struct {
	token  uuid.UUID
	timer  *time.Timer
	action Action
	dueAt  time.Time
}

// Ticket identifies a scheduled action.
type Ticket struct {
	Key   string    `json:"key"`
	Token uuid.UUID `json:"undo_token"`
	DueAt time.Time `json:"executes_at"`
}

// Scheduler runs an action after a delay unless it is cancelled first.
// Actions are keyed; scheduling a key that is already pending replaces it.
type Scheduler struct {
	mu      sync.Mutex
	delay   time.Duration
	pending map[string]*pending
	logg    *logger.Logger
	wg      sync.WaitGroup
	closed  bool
}

func NewScheduler(delay time.Duration, logg *logger.Logger) *Scheduler {
	if delay <= 0 {
		delay = 5 * time.Second
	}
	return &Scheduler{delay: delay, pending: map[string]*pending{}, logg: logg}
}

// Schedule registers action under key and returns its ticket.
func (s *Scheduler) Schedule(key string, action Action) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.pending[key]; ok {
		if prev.timer.Stop() {
			s.wg.Done()
		}
		delete(s.pending, key)
	}

	entry := &pending{token: uuid.New(), action: action, dueAt: time.Now().Add(s.delay)}
	if s.closed {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(key, entry)
		}()
		return Ticket{Key: key, Token: entry.token, DueAt: entry.dueAt}
	}

	s.wg.Add(1)
	entry.timer = time.AfterFunc(s.delay, func() {
		defer s.wg.Done()
		if !s.claim(key, entry.token) {
			return
		}
		s.run(key, entry)
	})
	s.pending[key] = entry
	return Ticket{Key: key, Token: entry.token, DueAt: entry.dueAt}
}

// Cancel stops the pending action for key. It reports false when nothing was
// pending or the action already started.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.pending[key]
	if !ok {
		return false
	}
	delete(s.pending, key)
	if entry.timer.Stop() {
		s.wg.Done()
	}
	return true
}

// Pending reports whether key has an action waiting.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// PendingKeys lists the waiting keys that start with prefix, sorted.
func (s *Scheduler) PendingKeys(prefix string) []string {
	s.mu.Lock()
	keys := make([]string, 0, len(s.pending))
	for key := range s.pending {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	s.mu.Unlock()
	slices.Sort(keys)
	return keys
}

// Shutdown runs every pending action immediately and waits for in-flight
// ones, bounded by ctx.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	flush := make(map[string]*pending, len(s.pending))
	stopped := make(map[string]bool, len(s.pending))
	for key, entry := range s.pending {
		flush[key] = entry
		stopped[key] = entry.timer.Stop()
		delete(s.pending, key)
	}
	s.mu.Unlock()

	// A timer that already fired cannot claim its entry anymore, so it is
	// run here either way; only stopped timers owe the wait group.
	for key, entry := range flush {
		s.run(key, entry)
		if stopped[key] {
			s.wg.Done()
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) claim(key string, token uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.pending[key]
	if !ok || entry.token != token {
		return false
	}
	delete(s.pending, key)
	return true
}

func (s *Scheduler) run(key string, entry *pending) {
	ctx := context.Background()
	if s.logg != nil {
		ctx = s.logg.WithField(ctx, "undo_key", key)
	}
	if err := entry.action(ctx); err != nil && s.logg != nil {
		s.logg.Error(ctx, "deferred action failed", err)
		return
	}
	if s.logg != nil {
		s.logg.Info(ctx, "deferred action executed")
	}
}
