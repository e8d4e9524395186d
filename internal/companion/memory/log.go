package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxTotal is the retention cap applied when no explicit cap is
// configured. Once the log holds this many turns, each append evicts the
// oldest entries first.
const DefaultMaxTotal = 200

// Log is an ordered, bounded buffer of conversation turns (oldest first).
// There is one Log per process, constructed at startup and handed to the
// chat service; it is safe for concurrent use.
type Log struct {
	mu       sync.Mutex
	maxTotal int
	turns    []Turn
}

// NewLog creates a Log retaining at most maxTotal turns.
// If maxTotal ≤ 0 it defaults to DefaultMaxTotal.
func NewLog(maxTotal int) *Log {
	if maxTotal <= 0 {
		maxTotal = DefaultMaxTotal
	}
	return &Log{maxTotal: maxTotal}
}

// Append records a turn at the end of the log and returns it with its
// assigned ID and timestamp. When the append pushes the log over the
// retention cap, the oldest turns are dropped until the cap holds.
func (l *Log) Append(role Role, text string) Turn {
	return l.appendAt(role, text, time.Now())
}

// appendAt is the time-injectable core of Append (for testing).
func (l *Log) appendAt(role Role, text string, now time.Time) Turn {
	turn := Turn{
		ID:        uuid.New().String(),
		Role:      role,
		Text:      text,
		Timestamp: now,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.turns = append(l.turns, turn)
	if excess := len(l.turns) - l.maxTotal; excess > 0 {
		l.turns = l.turns[excess:]
	}
	return turn
}

// Recent returns the last min(n, length) turns in original order.
// The returned slice is a copy; mutations do not affect the log.
func (l *Log) Recent(n int) []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > len(l.turns) {
		n = len(l.turns)
	}
	if n <= 0 {
		return nil
	}
	out := make([]Turn, n)
	copy(out, l.turns[len(l.turns)-n:])
	return out
}

// Snapshot returns a copy of every retained turn, oldest first.
func (l *Log) Snapshot() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Clear empties the log.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = nil
}

// Len returns the number of retained turns.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.turns)
}
