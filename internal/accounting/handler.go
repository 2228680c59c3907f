package accounting

import (
	"context"
	"strconv"
	"time"

	"github.com/radiusd-go/radiusd/internal/dictionary"
	"github.com/radiusd-go/radiusd/internal/metrics"
	"github.com/radiusd-go/radiusd/internal/packet"
	"github.com/radiusd-go/radiusd/internal/radiuscodec"
	"github.com/radiusd-go/radiusd/internal/request"
)

// statusTypeNames maps the Acct-Status-Type integer values this
// handler cares about to the strings written to the detail log;
// anything else is logged by its raw integer value.
var statusTypeNames = map[uint32]string{
	1: "Start",
	2: "Stop",
	3: "Interim-Update",
	7: "Accounting-On",
	8: "Accounting-Off",
}

// Handler returns a dispatch.Handler that appends one Record to w per
// Accounting-Request and replies with an Accounting-Response carrying
// the request's authenticator back for the response MAC.
func Handler(w *Writer) func(ctx context.Context, rec *request.Record) (*packet.Packet, error) {
	return func(ctx context.Context, rec *request.Record) (*packet.Packet, error) {
		p := rec.Packet
		out := Record{Timestamp: time.Now()}

		if p.SrcAddr != nil {
			out.ClientIP = p.SrcAddr.IP.String()
		}
		if a, ok := p.Get(dictionary.RADIUSAttr(1)); ok {
			out.UserName = a.String()
		}
		if a, ok := p.Get(dictionary.RADIUSAttr(40)); ok {
			if v, err := a.Integer(); err == nil {
				if name, known := statusTypeNames[v]; known {
					out.StatusType = name
				} else {
					out.StatusType = strconv.FormatUint(uint64(v), 10)
				}
			}
		}
		if a, ok := p.Get(dictionary.RADIUSAttr(44)); ok {
			out.SessionID = a.String()
		}
		if a, ok := p.Get(dictionary.RADIUSAttr(46)); ok {
			if v, err := a.Integer(); err == nil {
				out.SessionTime = v
			}
		}
		if a, ok := p.Get(dictionary.RADIUSAttr(42)); ok {
			if v, err := a.Integer(); err == nil {
				out.InputOctets = v
			}
		}
		if a, ok := p.Get(dictionary.RADIUSAttr(43)); ok {
			if v, err := a.Integer(); err == nil {
				out.OutputOctets = v
			}
		}
		if a, ok := p.Get(dictionary.RADIUSAttr(87)); ok {
			out.NASPortID = a.String()
		}

		if err := w.Write(out); err != nil {
			return nil, err
		}
		metrics.AccountingRecords.WithLabelValues(out.StatusType).Inc()

		return &packet.Packet{
			Code:   radiuscodec.CodeAccountingResponse,
			ID:     p.ID,
			Vector: p.Vector,
		}, nil
	}
}
