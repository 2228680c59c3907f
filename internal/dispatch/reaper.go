package dispatch

import (
	"strings"
	"time"

	"github.com/radiusd-go/radiusd/internal/metrics"
	"github.com/radiusd-go/radiusd/internal/worker"
)

// drainReaper consumes every worker.Result already queued on the
// pool's results channel without blocking, and folds each into the
// Request Table (caching the reply for retransmission, clearing the
// worker handle). It runs at the top of every main-loop iteration,
// replacing a signal-driven reaper with an explicit message pass.
func (s *Server) drainReaper(now time.Time) {
	for {
		select {
		case res := <-s.Workers.Results():
			s.reapResult(res, now)
		default:
			metrics.WorkersLive.Set(float64(s.Workers.Live()))
			metrics.RequestTableSize.Set(float64(s.Table.Len()))
			return
		}
	}
}

// reapResult folds one worker.Result into the Request Table. It is
// shared by drainReaper's non-blocking sweep and the main loop's
// select, which reaps a result as soon as it arrives even when no
// socket traffic is pending.
func (s *Server) reapResult(res worker.Result, now time.Time) {
	if res.Err != nil {
		if strings.Contains(res.Err.Error(), "worker panic:") {
			metrics.WorkerPanics.Inc()
		}
		s.Logger.Error("worker task failed", "handle", res.Handle, "error", res.Err)
	}
	if !s.Table.MarkWorkerDone(res.Handle, res.Reply, now) {
		s.Logger.Warn("worker result for unknown or already-reaped request", "handle", res.Handle)
	}
}
