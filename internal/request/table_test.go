package request

import (
	"net"
	"testing"
	"time"

	"github.com/radiusd-go/radiusd/internal/packet"
	"github.com/radiusd-go/radiusd/internal/worker"
)

func newRecord(ip string, id uint32, vector byte) *Record {
	return &Record{
		Packet: &packet.Packet{
			ID:      id,
			Vector:  [16]byte{0: vector},
			SrcAddr: &net.UDPAddr{IP: net.ParseIP(ip)},
		},
	}
}

func TestAdmitDedupRejectsIdenticalTuple(t *testing.T) {
	tbl := NewTable(256, 5*time.Second, 30*time.Second)
	now := time.Now()

	if out := tbl.Admit(newRecord("10.0.0.1", 7, 1), now); out != Accept {
		t.Fatalf("first admit = %v, want Accept", out)
	}
	if out := tbl.Admit(newRecord("10.0.0.1", 7, 1), now); out != RejectDuplicate {
		t.Fatalf("second admit = %v, want RejectDuplicate", out)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
}

func TestAdmitCachedReplyIsRetransmitted(t *testing.T) {
	tbl := NewTable(256, 5*time.Second, 30*time.Second)
	now := time.Now()

	first := newRecord("10.0.0.1", 7, 1)
	tbl.Admit(first, now)

	reply := &packet.Packet{Code: 2}
	first.Reply = reply
	first.Finished = true

	var retransmitted *Record
	tbl.Retransmit = func(rec *Record) { retransmitted = rec }

	out := tbl.Admit(newRecord("10.0.0.1", 7, 1), now.Add(time.Second))
	if out != RejectDuplicate {
		t.Fatalf("admit = %v, want RejectDuplicate", out)
	}
	if retransmitted != first {
		t.Error("expected the cached reply to be retransmitted")
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
}

func TestAdmitStaleWorkerIsKilledAndRetired(t *testing.T) {
	tbl := NewTable(256, 5*time.Second, 30*time.Second)
	now := time.Now()

	stale := newRecord("10.0.0.2", 9, 2)
	tbl.Admit(stale, now)
	stale.Worker = worker.Handle(1)

	var killed worker.Handle
	tbl.Kill = func(h worker.Handle) { killed = h }

	out := tbl.Admit(newRecord("10.0.0.3", 1, 9), now.Add(31*time.Second))
	if out != Accept {
		t.Fatalf("admit = %v, want Accept", out)
	}
	if killed != worker.Handle(1) {
		t.Errorf("killed = %v, want handle 1", killed)
	}
	if stale.Worker != worker.None {
		t.Error("expected the stale record's worker handle to be cleared")
	}
}

func TestAdmitOverloadRejectsBeyondMaxRequests(t *testing.T) {
	tbl := NewTable(1, 5*time.Second, 30*time.Second)
	now := time.Now()

	if out := tbl.Admit(newRecord("10.0.0.1", 1, 1), now); out != Accept {
		t.Fatalf("first admit = %v, want Accept", out)
	}
	if out := tbl.Admit(newRecord("10.0.0.2", 2, 2), now); out != RejectOverload {
		t.Fatalf("second admit = %v, want RejectOverload", out)
	}
}

func TestAdmitReapsRecordPastCleanupDelay(t *testing.T) {
	tbl := NewTable(256, 5*time.Second, 30*time.Second)
	now := time.Now()

	tbl.Admit(newRecord("10.0.0.1", 1, 1), now)

	tbl.Admit(newRecord("10.0.0.2", 2, 2), now.Add(6*time.Second))
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (first record should be reaped on the next admission)", tbl.Len())
	}
}

func TestAdmitSameIDDifferentVectorIsNotADuplicate(t *testing.T) {
	tbl := NewTable(256, 5*time.Second, 30*time.Second)
	now := time.Now()

	first := newRecord("10.0.0.1", 7, 1)
	tbl.Admit(first, now)
	first.Worker = worker.Handle(5) // still in flight, not finished

	out := tbl.Admit(newRecord("10.0.0.1", 7, 2), now)
	if out != Accept {
		t.Fatalf("admit = %v, want Accept (same id, different vector, collider not finished)", out)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}
}

func TestMarkWorkerDoneUpdatesMatchingRecord(t *testing.T) {
	tbl := NewTable(256, 5*time.Second, 30*time.Second)
	now := time.Now()

	rec := newRecord("10.0.0.1", 1, 1)
	tbl.Admit(rec, now)
	rec.Worker = worker.Handle(42)

	reply := &packet.Packet{Code: 2}
	if !tbl.MarkWorkerDone(worker.Handle(42), reply, now.Add(time.Second)) {
		t.Fatal("expected MarkWorkerDone to find the matching record")
	}
	if rec.Worker != worker.None || !rec.Finished || rec.Reply != reply {
		t.Errorf("record not updated correctly: %+v", rec)
	}
}

func TestAdmitSameIDDifferentVectorFastRetiresFinishedCollider(t *testing.T) {
	tbl := NewTable(256, 5*time.Second, 30*time.Second)
	now := time.Now()

	first := newRecord("10.0.0.1", 7, 1)
	tbl.Admit(first, now)
	first.Finished = true
	first.Worker = worker.None

	out := tbl.Admit(newRecord("10.0.0.1", 7, 2), now)
	if out != Accept {
		t.Fatalf("admit = %v, want Accept", out)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (finished collider should be fast-retired and reaped)", tbl.Len())
	}
}
