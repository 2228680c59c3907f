package dispatch

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/radiusd-go/radiusd/internal/dhcpcodec"
	"github.com/radiusd-go/radiusd/internal/metrics"
	"github.com/radiusd-go/radiusd/internal/packet"
	"github.com/radiusd-go/radiusd/internal/radiuscodec"
	"github.com/radiusd-go/radiusd/internal/request"
	"github.com/radiusd-go/radiusd/pkg/dhcpv4"
)

// inbound is one not-yet-decoded datagram, tagged with the socket it
// arrived on.
type inbound struct {
	kind SocketKind
	data []byte
	src  *net.UDPAddr
	sock *net.UDPConn
}

// Run drives the dispatcher until ctx is cancelled. It starts one
// reader goroutine per configured socket, then loops: check for a
// pending reload, drain completed worker results into the Request
// Table, and process the next arriving datagram.
func (s *Server) Run(ctx context.Context) error {
	in := make(chan inbound, 256)

	for kind, conn := range map[SocketKind]*net.UDPConn{
		SocketAuth:  s.AuthSock,
		SocketAcct:  s.AcctSock,
		SocketProxy: s.ProxySock,
		SocketDHCP:  s.DHCPSock,
	} {
		if conn != nil {
			go s.readLoop(ctx, conn, kind, in)
		}
	}

	for {
		s.checkReload()
		s.drainReaper(time.Now())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case dg := <-in:
			s.handleDatagram(ctx, dg)
		case res := <-s.Workers.Results():
			// Reap immediately rather than waiting for the next
			// datagram so the Request Table doesn't hold a finished
			// worker's handle open while the dispatcher is idle.
			s.reapResult(res, time.Now())
		}
	}
}

func (s *Server) readLoop(ctx context.Context, conn *net.UDPConn, kind SocketKind, out chan<- inbound) {
	buf := make([]byte, 65536)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			s.Logger.Error("socket read failed", "socket", int(kind), "error", err)
			continue
		}

		data := append([]byte(nil), buf[:n]...)
		select {
		case out <- inbound{kind: kind, data: data, src: addr, sock: conn}:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) handleDatagram(ctx context.Context, dg inbound) {
	now := time.Now()
	if dg.kind == SocketDHCP {
		s.handleDHCP(ctx, dg, now)
		return
	}
	s.handleRADIUS(ctx, dg, now)
}

func (s *Server) handleRADIUS(ctx context.Context, dg inbound, now time.Time) {
	client, ok := s.Clients.Lookup(dg.src.IP)
	if !ok {
		s.Logger.Warn("rejecting datagram from unregistered client", "src", dg.src)
		return
	}

	p, err := radiuscodec.Decode(dg.data, client.Secret)
	if err != nil {
		metrics.PacketErrors.WithLabelValues("radius", "decode").Inc()
		s.Logger.Warn("failed to decode radius packet", "src", dg.src, "error", err)
		return
	}
	p.SrcAddr = dg.src
	p.Socket = dg.sock
	metrics.PacketsReceived.WithLabelValues("radius", strconv.Itoa(int(p.Code))).Inc()

	action, err := Classify(dg.kind, p)
	if err != nil {
		metrics.PacketErrors.WithLabelValues("radius", "classify").Inc()
		s.Logger.Warn("rejected radius packet", "src", dg.src, "code", p.Code, "error", err)
		return
	}
	if action == ActionProxyReply {
		return
	}
	if valid, err := radiuscodec.VerifyMessageAuthenticator(dg.data, client.Secret); err != nil || !valid {
		metrics.PacketErrors.WithLabelValues("radius", "authenticator").Inc()
		s.Logger.Warn("dropping radius packet with bad message-authenticator", "src", dg.src, "error", err)
		return
	}

	rec := &request.Record{Packet: p, Secret: client.Secret}
	if outcome := s.Table.Admit(rec, now); outcome != request.Accept {
		metrics.AdmissionRejects.WithLabelValues(admissionReason(outcome)).Inc()
		return
	}

	handler := s.Authenticate
	if action == ActionAccounting {
		handler = s.Accounting
	}
	s.run(ctx, rec, handler, func(reply *packet.Packet) {
		s.sendRADIUS(rec, reply, client.Secret)
	})
}

func (s *Server) handleDHCP(ctx context.Context, dg inbound, now time.Time) {
	p, err := dhcpcodec.Decode(dg.data)
	if err != nil {
		metrics.PacketErrors.WithLabelValues("dhcp", "decode").Inc()
		s.Logger.Warn("failed to decode dhcp packet", "src", dg.src, "error", err)
		return
	}
	p.SrcAddr = dg.src
	p.Socket = dg.sock
	metrics.PacketsReceived.WithLabelValues("dhcp", strconv.Itoa(int(p.Code))).Inc()

	rec := &request.Record{Packet: p}
	if outcome := s.Table.Admit(rec, now); outcome != request.Accept {
		metrics.AdmissionRejects.WithLabelValues(admissionReason(outcome)).Inc()
		return
	}

	s.run(ctx, rec, s.DHCP, func(reply *packet.Packet) {
		s.sendDHCP(rec, reply)
	})
}

// run invokes handler for rec, inline or spawned per Config.SpawnMode,
// and hands any reply to send when it completes.
func (s *Server) run(ctx context.Context, rec *request.Record, handler Handler, send func(*packet.Packet)) {
	if handler == nil {
		return
	}

	protocol := "radius"
	if rec.Packet.Code >= dhcpv4.DHCPOffset {
		protocol = "dhcp"
	}

	task := func(tctx context.Context) (*packet.Packet, error) {
		start := time.Now()
		reply, err := handler(tctx, rec)
		metrics.PacketProcessingDuration.WithLabelValues(protocol).Observe(time.Since(start).Seconds())
		return reply, err
	}

	if !s.Config.SpawnMode {
		reply, err := task(ctx)
		if err != nil {
			s.Logger.Error("handler failed", "error", err)
		}
		rec.Reply = reply
		rec.Finished = true
		rec.Timestamp = time.Now()
		send(reply)
		return
	}

	metrics.WorkersSpawned.WithLabelValues(protocol).Inc()
	rec.Worker = s.Workers.Spawn(ctx, s.watchdogDeadline, func(tctx context.Context) (*packet.Packet, error) {
		reply, err := task(tctx)
		if reply != nil {
			send(reply)
		}
		return reply, err
	})
}

func (s *Server) sendRADIUS(rec *request.Record, reply *packet.Packet, secret []byte) {
	if reply == nil || rec.Packet.Socket == nil {
		return
	}
	out, err := radiuscodec.Encode(reply, secret)
	if err != nil {
		metrics.PacketErrors.WithLabelValues("radius", "encode").Inc()
		s.Logger.Error("failed to encode radius reply", "error", err)
		return
	}
	if _, err := rec.Packet.Socket.WriteToUDP(out, rec.Packet.SrcAddr); err != nil {
		metrics.PacketErrors.WithLabelValues("radius", "send").Inc()
		s.Logger.Error("failed to send radius reply", "dst", rec.Packet.SrcAddr, "error", err)
		return
	}
	metrics.PacketsSent.WithLabelValues("radius", strconv.Itoa(int(reply.Code))).Inc()
}

func (s *Server) sendDHCP(rec *request.Record, reply *packet.Packet) {
	if reply == nil || rec.Packet.Socket == nil {
		return
	}
	out, err := dhcpcodec.Encode(reply, rec.Packet, s.dhcpLogf)
	if err != nil {
		metrics.PacketErrors.WithLabelValues("dhcp", "encode").Inc()
		s.Logger.Error("failed to encode dhcp reply", "error", err)
		return
	}
	dst := &net.UDPAddr{IP: dhcpcodec.Route(reply, rec.Packet), Port: rec.Packet.SrcAddr.Port}
	if _, err := rec.Packet.Socket.WriteToUDP(out, dst); err != nil {
		metrics.PacketErrors.WithLabelValues("dhcp", "send").Inc()
		s.Logger.Error("failed to send dhcp reply", "dst", dst, "error", err)
		return
	}
	metrics.PacketsSent.WithLabelValues("dhcp", strconv.Itoa(int(reply.Code))).Inc()
}

func (s *Server) dhcpLogf(format string, args ...any) {
	s.Logger.Warn("dhcp encode: " + fmt.Sprintf(format, args...))
}

// admissionReason maps a Table.Admit outcome to a metrics label.
func admissionReason(outcome request.Outcome) string {
	switch outcome {
	case request.RejectDuplicate:
		return "duplicate"
	case request.RejectOverload:
		return "overload"
	default:
		return "unknown"
	}
}
