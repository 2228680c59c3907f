package clients

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketReloadAudit = []byte("client_registry_reload_audit")

// Event records one registry reload: which peer keys were added,
// removed, or changed.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Added     []string  `json:"added,omitempty"`
	Removed   []string  `json:"removed,omitempty"`
	Changed   []string  `json:"changed,omitempty"`
}

// Audit is a bounded append-only log of registry reload events, kept
// in its own bucket of a BoltDB handle supplied by the caller.
type Audit struct {
	db       *bolt.DB
	maxCount int
}

// OpenAudit opens (creating if absent) the reload-audit bucket in db,
// retaining at most maxCount most recent events.
func OpenAudit(db *bolt.DB, maxCount int) (*Audit, error) {
	if maxCount <= 0 {
		maxCount = 1000
	}
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketReloadAudit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating client registry audit bucket: %w", err)
	}
	return &Audit{db: db, maxCount: maxCount}, nil
}

// Record appends ev, trimming the oldest entries once the bucket
// exceeds maxCount.
func (a *Audit) Record(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshalling audit event: %w", err)
	}

	return a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReloadAudit)
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("allocating audit sequence: %w", err)
		}
		if err := b.Put(sequenceKey(seq), data); err != nil {
			return fmt.Errorf("storing audit event: %w", err)
		}
		return trimOldest(b, a.maxCount)
	})
}

// Recent returns up to n most recently recorded events, newest first.
func (a *Audit) Recent(n int) ([]Event, error) {
	var events []Event
	err := a.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReloadAudit)
		c := b.Cursor()
		for k, v := c.Last(); k != nil && len(events) < n; k, v = c.Prev() {
			var ev Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return fmt.Errorf("unmarshalling audit event: %w", err)
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func trimOldest(b *bolt.Bucket, maxCount int) error {
	count := b.Stats().KeyN
	excess := count - maxCount
	if excess <= 0 {
		return nil
	}

	c := b.Cursor()
	for k, _ := c.First(); k != nil && excess > 0; k, _ = c.Next() {
		if err := c.Delete(); err != nil {
			return fmt.Errorf("trimming audit log: %w", err)
		}
		excess--
	}
	return nil
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
