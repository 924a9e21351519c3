// Package transcript buffers incrementally arriving transcription fragments
// and finalizes them into turn-ordered entries.
package transcript

import (
	"strings"
	"sync"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Entry is one finalized transcript line. Entries are created only at a turn
// boundary and never mutated afterwards.
type Entry struct {
	Role      Role
	Text      string
	Timestamp time.Time
}

// Accumulator buffers partial text for the open turn. It lives only for the
// duration of that turn; Flush resets it. Accumulation within a turn is
// unbounded, turns are short.
type Accumulator struct {
	mu    sync.Mutex
	user  strings.Builder
	agent strings.Builder
	now   func() time.Time
}

func NewAccumulator() *Accumulator {
	return &Accumulator{now: time.Now}
}

// NewAccumulatorWithClock substitutes the timestamp source, for tests.
func NewAccumulatorWithClock(now func() time.Time) *Accumulator {
	if now == nil {
		now = time.Now
	}
	return &Accumulator{now: now}
}

func (a *Accumulator) AppendUser(fragment string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user.WriteString(fragment)
}

func (a *Accumulator) AppendAgent(fragment string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.agent.WriteString(fragment)
}

// Flush finalizes the open turn: one entry per non-empty side, user before
// agent, both stamped with the current time, and both buffers reset. A turn
// with no speech flushes to nothing, which is expected, not an error.
func (a *Accumulator) Flush() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	user := strings.TrimSpace(a.user.String())
	agent := strings.TrimSpace(a.agent.String())
	a.user.Reset()
	a.agent.Reset()
	if user == "" && agent == "" {
		return nil
	}
	ts := a.now()
	entries := make([]Entry, 0, 2)
	if user != "" {
		entries = append(entries, Entry{Role: RoleUser, Text: user, Timestamp: ts})
	}
	if agent != "" {
		entries = append(entries, Entry{Role: RoleAgent, Text: agent, Timestamp: ts})
	}
	return entries
}
