// Package request implements the Request Table: the dispatcher's
// record of in-flight and recently-completed requests, used to detect
// duplicates, replay cached replies, enforce the worker watchdog, and
// shed load under overload.
package request

import (
	"time"

	"github.com/radiusd-go/radiusd/internal/packet"
	"github.com/radiusd-go/radiusd/internal/worker"
)

// Record tracks one admitted request from arrival through reply.
type Record struct {
	Packet    *packet.Packet
	Reply     *packet.Packet
	Proxy     *packet.Packet
	Secret    []byte
	Timestamp time.Time
	Worker    worker.Handle
	Finished  bool

	Next *Record
}

// Outcome is the result of an Admit call.
type Outcome int

const (
	// Accept means new was appended to the table; processing continues.
	Accept Outcome = iota
	// RejectDuplicate means new is a live duplicate; if the existing
	// record carries a cached reply it was handed to Retransmit.
	RejectDuplicate
	// RejectOverload means the table is at MaxRequests capacity or the
	// RateLimit denied the request's source.
	RejectOverload
)

// Table is the dispatcher's singly-linked list of Records, rooted at
// first. It is owned by the dispatcher's single goroutine; the only
// other writer is the reaper, which the dispatcher guarantees never
// runs concurrently with Admit (see internal/dispatch/reaper.go).
type Table struct {
	first *Record
	count int

	MaxRequests    int
	CleanupDelay   time.Duration
	MaxRequestTime time.Duration

	// Kill terminates a worker that has exceeded MaxRequestTime. Set
	// to a worker.Pool's Kill method by the caller wiring the table up.
	Kill func(worker.Handle)

	// Retransmit resends a cached reply for a duplicate request. Set
	// by the caller; if nil, duplicates are dropped silently even when
	// a cached reply exists.
	Retransmit func(rec *Record)

	// RateLimit, if set, is consulted before the MaxRequests overload
	// check; a caller that exceeds it is shed the same way overload is.
	RateLimit *RateLimiter
}

// NewTable returns an empty table with the given limits.
func NewTable(maxRequests int, cleanupDelay, maxRequestTime time.Duration) *Table {
	return &Table{
		MaxRequests:    maxRequests,
		CleanupDelay:   cleanupDelay,
		MaxRequestTime: maxRequestTime,
	}
}

// Len reports the current number of live records.
func (t *Table) Len() int {
	return t.count
}

// Admit runs the full admission algorithm for new against the table:
// reaping stale finished records, detecting duplicates (exact vector
// match) and same-id vector collisions (fast-retiring a finished
// collider), killing workers that have run past MaxRequestTime, then
// either rejecting for overload or appending new.
func (t *Table) Admit(new *Record, now time.Time) Outcome {
	new.Timestamp = now

	var prev *Record
	cur := t.first

	// The same-id vector-collision branch below can revisit a record
	// after backdating its timestamp; bound the number of times we do
	// that per admission so a pathological list of finished colliders
	// can't spin forever.
	retries := t.count + 1

	for cur != nil {
		if cur.Worker == worker.None && now.Sub(cur.Timestamp) >= t.CleanupDelay {
			cur = t.unlink(prev, cur)
			continue
		}

		if sameSource(cur, new) {
			if packet.VectorEqual(cur.Packet.Vector, new.Packet.Vector) {
				if t.Retransmit != nil && cur.Reply != nil {
					t.Retransmit(cur)
				}
				return RejectDuplicate
			}

			if cur.Finished && retries > 0 {
				retries--
				cur.Timestamp = now.Add(-t.CleanupDelay)
				continue
			}
		} else if cur.Worker != worker.None && now.Sub(cur.Timestamp) >= t.MaxRequestTime {
			if t.Kill != nil {
				t.Kill(cur.Worker)
			}
			cur.Worker = worker.None
		}

		prev = cur
		cur = cur.Next
	}

	if t.RateLimit != nil && new.Packet.SrcAddr != nil && !t.RateLimit.Allow(new.Packet.SrcAddr.IP, now) {
		return RejectOverload
	}

	if t.MaxRequests > 0 && t.count >= t.MaxRequests {
		return RejectOverload
	}

	new.Worker = worker.None
	new.Next = nil
	t.append(new)
	return Accept
}

func sameSource(cur, new *Record) bool {
	if cur.Packet.SrcAddr == nil || new.Packet.SrcAddr == nil {
		return false
	}
	return cur.Packet.SrcAddr.IP.Equal(new.Packet.SrcAddr.IP) && cur.Packet.ID == new.Packet.ID
}

func (t *Table) append(r *Record) {
	if t.first == nil {
		t.first = r
		t.count++
		return
	}
	cur := t.first
	for cur.Next != nil {
		cur = cur.Next
	}
	cur.Next = r
	t.count++
}

// unlink removes cur from the list and returns the record to resume
// iteration from (cur's former successor).
func (t *Table) unlink(prev, cur *Record) *Record {
	next := cur.Next
	if prev == nil {
		t.first = next
	} else {
		prev.Next = next
	}
	t.count--
	return next
}

// MarkWorkerDone clears a record's worker handle and refreshes its
// timestamp so CleanupDelay starts counting from completion, not
// arrival. Called by the reaper once a worker's result has been
// consumed. reply is nil if the worker produced none.
func (t *Table) MarkWorkerDone(h worker.Handle, reply *packet.Packet, now time.Time) bool {
	for cur := t.first; cur != nil; cur = cur.Next {
		if cur.Worker != h {
			continue
		}
		cur.Worker = worker.None
		cur.Reply = reply
		cur.Finished = true
		cur.Timestamp = now
		return true
	}
	return false
}
