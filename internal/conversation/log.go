// Package conversation tracks the turns of a research session and decides
// when earlier turns are fed back into follow-up prompts.
package conversation

import (
	"sync"
	"time"
)

type Turn struct {
	Timestamp time.Time
	Query     string
	Response  string
}

// Log is an append-only sequence of turns, cleared only by Reset.
type Log struct {
	mu    sync.RWMutex
	turns []Turn
}

func (l *Log) Append(t Turn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, t)
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// Turns returns a copy of every turn in order.
func (l *Log) Turns() []Turn {
	return l.Last(-1)
}

// Last returns a copy of the trailing n turns, oldest first. n < 0 means all.
func (l *Log) Last(n int) []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n < 0 || n > len(l.turns) {
		n = len(l.turns)
	}
	if n == 0 {
		return nil
	}
	out := make([]Turn, n)
	copy(out, l.turns[len(l.turns)-n:])
	return out
}

func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = nil
}
