// Package dispatch implements the main event loop: drain the
// authentication, accounting, proxy, and DHCP sockets; decode each
// datagram; classify it; admit it into the shared Request Table; and
// delegate to a handler, inline or in its own worker goroutine.
//
// Per the redesign from the historical fork-per-request,
// signal-driven-reaper model: all server-wide state (sockets, client
// registry, request table, worker pool) lives on an explicit *Server
// passed to every component here, instead of process globals.
package dispatch

import (
	"context"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/radiusd-go/radiusd/internal/clients"
	"github.com/radiusd-go/radiusd/internal/metrics"
	"github.com/radiusd-go/radiusd/internal/packet"
	"github.com/radiusd-go/radiusd/internal/radiusproxy"
	"github.com/radiusd-go/radiusd/internal/request"
	"github.com/radiusd-go/radiusd/internal/worker"
	"github.com/radiusd-go/radiusd/pkg/dhcpv4"
)

// Handler runs business logic for one admitted request and returns
// the reply packet to send, or nil if no reply should be sent. It is
// supplied by the caller (cmd/radiusd); this package treats it purely
// as an external collaborator and has no opinion on its internals.
type Handler func(ctx context.Context, rec *request.Record) (*packet.Packet, error)

// Config holds the dispatcher's tunables, normally sourced from
// internal/config.
type Config struct {
	SpawnMode      bool
	MaxRequestTime time.Duration
	CleanupDelay   time.Duration
	MaxRequests    int
	StripRealm     bool
	DisableNames   bool // -S: usernames are logged as "<stripped>"; display names are still resolved
}

// Server bundles everything the dispatch loop needs. One Server is
// created at startup and lives for the process lifetime; a reload
// requested via RequestReload runs the function registered with
// OnReload between main-loop iterations.
type Server struct {
	AuthSock  *net.UDPConn
	AcctSock  *net.UDPConn
	ProxySock *net.UDPConn
	DHCPSock  *net.UDPConn // nil if the DHCP bridge is disabled

	Clients *clients.Registry
	Table   *request.Table
	Workers *worker.Pool
	Proxy   *radiusproxy.Client

	Authenticate Handler
	Accounting   Handler
	DHCP         Handler

	Config Config
	Logger *slog.Logger

	reloadPending atomic.Bool
	onReload      func() error
}

// NewServer wires up a Server. sockets with a nil *net.UDPConn are
// simply never read from (used to run with the DHCP bridge disabled,
// for instance).
func NewServer(cfg Config, logger *slog.Logger) *Server {
	s := &Server{
		Clients: clients.New(),
		Table:   request.NewTable(cfg.MaxRequests, cfg.CleanupDelay, cfg.MaxRequestTime),
		Workers: worker.NewPool(64),
		Proxy:   radiusproxy.NewClient(),
		Config:  cfg,
		Logger:  logger,
	}
	s.Table.Kill = func(h worker.Handle) {
		metrics.WorkerTimeouts.Inc()
		s.Workers.Kill(h)
	}
	return s
}

// OnReload registers fn to run when a reload is requested (SIGHUP);
// it is invoked at the top of the next main-loop iteration, never
// concurrently with admission.
func (s *Server) OnReload(fn func() error) {
	s.onReload = fn
}

// RequestReload sets the pending-reload flag; the next main-loop
// iteration will call the registered reload function before resuming
// normal dispatch.
func (s *Server) RequestReload() {
	s.reloadPending.Store(true)
}

func (s *Server) checkReload() {
	if !s.reloadPending.CompareAndSwap(true, false) {
		return
	}
	if s.onReload == nil {
		return
	}
	if err := s.onReload(); err != nil {
		s.Logger.Error("configuration reload failed, continuing with prior configuration", "error", err)
	}
}

func (s *Server) watchdogDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.Config.MaxRequestTime)
}

// WireRetransmit installs s as the Request Table's retransmit callback,
// replaying a duplicate's cached reply over whichever protocol the
// original request used. Called once at startup after Table and the
// sockets are set up.
func (s *Server) WireRetransmit() {
	s.Table.Retransmit = func(rec *request.Record) {
		if rec.Reply == nil {
			return
		}
		metrics.Retransmits.Inc()
		if rec.Packet.Code >= dhcpv4.DHCPOffset {
			s.sendDHCP(rec, rec.Reply)
			return
		}
		s.sendRADIUS(rec, rec.Reply, rec.Secret)
	}
}
