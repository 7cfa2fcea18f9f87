// Package calllog implements the thread-safe invocation log: a growable
// record of observed calls, a versioned matched-invocation index, and
// point-in-time verification contexts over that index.
package calllog

import (
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/roach88/understudy/internal/core"
)

// ErrIndexOutOfRange is returned by indexed access beyond the current
// logical size.
var ErrIndexOutOfRange = errors.New("calllog: index out of range")

// initialCapacity is the backing array size after the first growth.
const initialCapacity = 4

// Log is the append-only record of observed invocations plus the
// matched-invocation index. All operations are safe for concurrent use.
//
// Entries visible through a Snapshot, ToArray, or a verification context
// are never overwritten in place: appends only touch slots beyond any
// captured count, and Clear replaces the backing array and the index with
// fresh instances, so readers holding old references keep observing the
// pre-clear state.
type Log struct {
	mu    sync.Mutex
	buf   []core.Invocation // len(buf) is the capacity
	count int
	index *matchIndex
	clock *Clock
}

// New creates an empty log with its own version clock.
func New() *Log {
	return &Log{
		index: newMatchIndex(),
		clock: NewClock(),
	}
}

// Add appends an invocation, doubling capacity (0→4→8→…) when full.
// The log owns the invocation from here on.
func (l *Log) Add(inv core.Invocation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count == len(l.buf) {
		capacity := initialCapacity
		if len(l.buf) > 0 {
			capacity = len(l.buf) * 2
		}
		grown := make([]core.Invocation, capacity)
		copy(grown, l.buf)
		l.buf = grown
	}
	l.buf[l.count] = inv
	l.count++
}

// Count returns the current logical size.
func (l *Log) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// At returns the invocation at index i, or ErrIndexOutOfRange when i is
// outside [0, Count).
func (l *Log) At(i int) (core.Invocation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i < 0 || i >= l.count {
		return nil, fmt.Errorf("%w: %d (count %d)", ErrIndexOutOfRange, i, l.count)
	}
	return l.buf[i], nil
}

// RecordMatchedInvocation stamps the (setup, invocation) pair with the next
// version and inserts it into the matched-invocation index. Returns the
// issued version.
func (l *Log) RecordMatchedInvocation(setupID int, inv core.Invocation) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	version := l.clock.Next()
	l.index.record(setupID, version, inv)
	return version
}

// Version returns the latest issued match version.
func (l *Log) Version() int64 {
	return l.clock.Current()
}

// Clear discards all invocations and match records by replacing the backing
// array and the index. Snapshots and contexts captured before the clear
// keep observing the old state; the version clock keeps counting.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = nil
	l.count = 0
	l.index = newMatchIndex()
}

// ToArray returns an owned copy of the current entries.
func (l *Log) ToArray() []core.Invocation {
	return l.ToArrayWhere(nil)
}

// ToArrayWhere returns an owned copy of the entries satisfying pred. A nil
// pred keeps everything.
func (l *Log) ToArrayWhere(pred func(core.Invocation) bool) []core.Invocation {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]core.Invocation, 0, l.count)
	for i := 0; i < l.count; i++ {
		if pred == nil || pred(l.buf[i]) {
			out = append(out, l.buf[i])
		}
	}
	return out
}

// Snapshot captures the backing array reference and count once, under the
// lock. Iterating the snapshot takes no further locks, so concurrent
// appends or clears never corrupt or block an in-flight iteration.
func (l *Log) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{buf: l.buf, count: l.count}
}

// MatchRecords returns all matched-invocation records in version order.
// The returned slice is owned by the caller.
func (l *Log) MatchRecords() []MatchRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.index.records()
}

// Snapshot is a frozen view of the log at capture time. The zero value is
// an empty snapshot.
type Snapshot struct {
	buf   []core.Invocation
	count int
}

// Len returns the number of entries captured.
func (s Snapshot) Len() int {
	return s.count
}

// At returns the captured invocation at index i, or ErrIndexOutOfRange.
func (s Snapshot) At(i int) (core.Invocation, error) {
	if i < 0 || i >= s.count {
		return nil, fmt.Errorf("%w: %d (count %d)", ErrIndexOutOfRange, i, s.count)
	}
	return s.buf[i], nil
}

// All returns a restartable iterator over the captured entries.
func (s Snapshot) All() iter.Seq[core.Invocation] {
	return func(yield func(core.Invocation) bool) {
		for i := 0; i < s.count; i++ {
			if !yield(s.buf[i]) {
				return
			}
		}
	}
}
