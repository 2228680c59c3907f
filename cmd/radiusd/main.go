// radiusd is a RADIUS request-dispatch daemon with a bridged DHCPv4
// codec, built around a single-threaded admission loop, goroutine
// workers, and a message-passing reaper.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"log/syslog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/miekg/dns"

	"github.com/radiusd-go/radiusd/internal/accounting"
	"github.com/radiusd-go/radiusd/internal/authbackend"
	"github.com/radiusd-go/radiusd/internal/clients"
	"github.com/radiusd-go/radiusd/internal/config"
	"github.com/radiusd-go/radiusd/internal/dictionary"
	"github.com/radiusd-go/radiusd/internal/dispatch"
	"github.com/radiusd-go/radiusd/internal/logging"
	"github.com/radiusd-go/radiusd/internal/metrics"
	"github.com/radiusd-go/radiusd/internal/packet"
	"github.com/radiusd-go/radiusd/internal/radiuscodec"
	"github.com/radiusd-go/radiusd/internal/radiusproxy"
	"github.com/radiusd-go/radiusd/internal/request"
)

// version is stamped at release time; "dev" covers local builds.
var version = "dev"

// soBindToDevice pins a socket to a network interface (Linux only,
// value 25). setsockopt fails harmlessly on other platforms.
const soBindToDevice = 25

func main() {
	var (
		authDetail    = flag.Bool("A", false, "enable authentication detail log")
		acctDir       = flag.String("a", "", "accounting directory")
		cachePasswd   = flag.Bool("c", false, "cache /etc/passwd and friends")
		configDir     = flag.String("d", "/etc/radiusd", "config directory")
		foreground    = flag.Bool("f", false, "foreground (no daemonize)")
		bindAddr      = flag.String("i", "", "bind only to ADDR")
		logDir        = flag.String("l", "", "log directory; \"stdout\" and \"syslog\" are special")
		noResolve     = flag.Bool("n", false, "disable reverse DNS")
		authPort      = flag.Int("p", 0, "override auth port")
		noSpawn       = flag.Bool("s", false, "disable worker spawning (inline)")
		strippedNames = flag.Bool("S", false, "log stripped names")
		printVersion  = flag.Bool("v", false, "print version, exit")
		debugLevel    countFlag
		debugShort    = flag.Bool("X", false, "shorthand for -sfxxyz -l stdout")
		logFailures   = flag.Bool("y", false, "log auth failures")
		logPasswords  = flag.Bool("z", false, "log auth passwords")
	)
	flag.Var(&debugLevel, "x", "increase debug level (stackable)")
	flag.Parse()

	if *printVersion {
		fmt.Println("radiusd", version)
		return
	}

	if *debugShort {
		*noSpawn = true
		*foreground = true
		debugLevel += 2
		*logFailures = true
		*logPasswords = true
		*logDir = "stdout"
	}

	logLevel := "info"
	if debugLevel > 0 {
		logLevel = "debug"
	}

	logOut, closeLog, err := openLogOutput(*logDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	logger := logging.Setup(logLevel, logOut)

	cfg, err := config.Load(filepath.Join(*configDir, "radiusd.toml"))
	if err != nil {
		logger.Error("configuration load failed", "error", err)
		os.Exit(1)
	}

	if *bindAddr != "" {
		cfg.Server.AuthAddress = overrideHost(cfg.Server.AuthAddress, *bindAddr)
		cfg.Server.AcctAddress = overrideHost(cfg.Server.AcctAddress, *bindAddr)
		cfg.Server.ProxyAddress = overrideHost(cfg.Server.ProxyAddress, *bindAddr)
		cfg.Server.DHCPAddress = overrideHost(cfg.Server.DHCPAddress, *bindAddr)
	}
	if *authPort > 0 {
		cfg.Server.AuthAddress = overridePort(cfg.Server.AuthAddress, *authPort)
	}
	if *acctDir != "" {
		cfg.Accounting.DetailPath = filepath.Join(*acctDir, "detail.csv")
	}
	if *noSpawn {
		cfg.Server.SpawnMode = false
	}
	if *strippedNames {
		cfg.Server.DisableNames = true
	}

	logger.Info("radiusd starting",
		"version", version,
		"config_dir", *configDir,
		"foreground", *foreground,
		"spawn_mode", cfg.Server.SpawnMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg, err := clients.Load(clientMap(cfg.Clients))
	if err != nil {
		logger.Error("client registry load failed", "error", err)
		os.Exit(1)
	}

	proxy := radiusproxy.NewClient()
	for _, p := range cfg.Proxy {
		target, err := proxyTarget(p)
		if err != nil {
			logger.Error("invalid proxy target", "key", p.Key, "error", err)
			os.Exit(1)
		}
		proxy.SetTarget(p.Key, target)
	}

	var backend authbackend.Backend
	if *cachePasswd && cfg.AuthFile != "" {
		pb, err := authbackend.NewPasswdBackend(cfg.AuthFile)
		if err != nil {
			logger.Error("passwd backend load failed", "error", err)
			os.Exit(1)
		}
		backend = pb
	}

	acctWriter, err := accounting.Open(cfg.Accounting.DetailPath)
	if err != nil {
		logger.Error("accounting detail log open failed", "error", err)
		os.Exit(1)
	}
	defer acctWriter.Close()

	dispatchCfg := dispatch.Config{
		SpawnMode:      cfg.Server.SpawnMode,
		MaxRequestTime: cfg.MaxRequestTimeDuration(),
		CleanupDelay:   cfg.CleanupDelayDuration(),
		MaxRequests:    cfg.Server.MaxRequests,
		StripRealm:     cfg.Server.StripRealm,
		DisableNames:   cfg.Server.DisableNames,
	}
	server := dispatch.NewServer(dispatchCfg, logger)
	server.Clients = reg
	server.Proxy = proxy
	server.Table.RateLimit = request.NewRateLimiter(cfg.RateLimit.Enabled, cfg.RateLimit.GlobalPerSecond, cfg.RateLimit.PerSourcePerSecond)

	var resolver *clients.Resolver
	if !*noResolve {
		if server, err := systemDNSServer(); err != nil {
			logger.Warn("reverse DNS unavailable, display names limited to configured clients", "error", err)
		} else {
			resolver = clients.NewResolver(server, 2*time.Second)
		}
	}

	authOpts := authOptions{
		stripRealm:   cfg.Server.StripRealm,
		disableNames: cfg.Server.DisableNames,
		logDetail:    *authDetail,
		logFailures:  *logFailures,
		logPasswords: *logPasswords,
		resolver:     resolver,
	}
	server.Authenticate = newAuthHandler(reg, proxy, backend, logger, authOpts)
	server.Accounting = accounting.Handler(acctWriter)
	server.DHCP = newDHCPHandler(logger)
	server.WireRetransmit()

	if cfg.Server.AuthAddress != "" {
		server.AuthSock, err = listenUDP(ctx, cfg.Server.AuthAddress, cfg.Server.Interface, logger)
		if err != nil {
			logger.Error("failed to open auth socket", "address", cfg.Server.AuthAddress, "error", err)
			os.Exit(1)
		}
	}
	if cfg.Server.AcctAddress != "" {
		server.AcctSock, err = listenUDP(ctx, cfg.Server.AcctAddress, cfg.Server.Interface, logger)
		if err != nil {
			logger.Error("failed to open accounting socket", "address", cfg.Server.AcctAddress, "error", err)
			os.Exit(1)
		}
	}
	if cfg.Server.ProxyAddress != "" {
		server.ProxySock, err = listenUDP(ctx, cfg.Server.ProxyAddress, cfg.Server.Interface, logger)
		if err != nil {
			logger.Error("failed to open proxy socket", "address", cfg.Server.ProxyAddress, "error", err)
			os.Exit(1)
		}
	}
	if cfg.Server.DHCPAddress != "" {
		server.DHCPSock, err = listenUDP(ctx, cfg.Server.DHCPAddress, cfg.Server.Interface, logger)
		if err != nil {
			logger.Error("failed to open dhcp socket", "address", cfg.Server.DHCPAddress, "error", err)
			os.Exit(1)
		}
	}

	server.OnReload(func() error {
		newCfg, err := config.Load(filepath.Join(*configDir, "radiusd.toml"))
		if err != nil {
			return err
		}
		if err := reg.Reload(clientMap(newCfg.Clients)); err != nil {
			return err
		}
		for _, p := range newCfg.Proxy {
			target, err := proxyTarget(p)
			if err != nil {
				return fmt.Errorf("proxy target %s: %w", p.Key, err)
			}
			proxy.SetTarget(p.Key, target)
		}
		cfg = newCfg
		logger.Info("configuration reloaded")
		return nil
	})

	metrics.ServerStartTime.SetToCurrentTime()
	metrics.ServerInfo.WithLabelValues(version).Set(1)

	if cfg.Server.PIDFile != "" {
		if err := writePIDFile(cfg.Server.PIDFile); err != nil {
			logger.Warn("failed to write PID file", "path", cfg.Server.PIDFile, "error", err)
		} else {
			defer removePIDFile(cfg.Server.PIDFile)
		}
	}

	runErr := make(chan error, 1)
	go func() { runErr <- server.Run(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case err := <-runErr:
			if err != nil && err != context.Canceled {
				logger.Error("dispatcher loop exited", "error", err)
				os.Exit(1)
			}
			return

		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				logger.Info("received SIGHUP, reloading configuration")
				server.RequestReload()

			case syscall.SIGINT, syscall.SIGTERM:
				logger.Info("received shutdown signal", "signal", sig.String())
				cancel()
				<-runErr
				logger.Info("radiusd stopped")
				return
			}
		}
	}
}

// authOptions controls the Authenticate handler's realm stripping,
// logging and display-name resolution, set from the config file and
// CLI flags.
type authOptions struct {
	stripRealm   bool
	disableNames bool
	logDetail    bool
	logFailures  bool
	logPasswords bool
	resolver     *clients.Resolver
}

// newAuthHandler builds the dispatch.Handler for Access-Request
// packets: proxy first if a target is configured for the peer, then
// the peer's configured auth_policy, then a PAP check against backend
// (if any) for accept-policy peers.
func newAuthHandler(reg *clients.Registry, proxy *radiusproxy.Client, backend authbackend.Backend, logger *slog.Logger, opts authOptions) dispatch.Handler {
	return func(ctx context.Context, rec *request.Record) (*packet.Packet, error) {
		p := rec.Packet
		client, ok := reg.Lookup(p.SrcAddr.IP)
		if !ok {
			return nil, fmt.Errorf("no client registry entry for %s", p.SrcAddr.IP)
		}
		key := p.SrcAddr.IP.String()

		if claimed, reply, err := proxy.Send(ctx, key, p, nil); claimed {
			if err != nil {
				metrics.AuthResponses.WithLabelValues("proxy-error").Inc()
				return nil, err
			}
			metrics.AuthResponses.WithLabelValues("proxy").Inc()
			return reply, nil
		}

		username := ""
		if a, ok := p.Get(dictionary.RADIUSAttr(1)); ok {
			username = a.String()
		}
		if opts.stripRealm {
			if i := strings.IndexByte(username, '@'); i >= 0 {
				username = username[:i]
			}
		}
		if username == "" {
			logger.Warn("dropping request with no username after normalization", "client", client.DisplayName)
			metrics.AuthResponses.WithLabelValues("drop-no-username").Inc()
			return nil, nil
		}
		logName := username
		if opts.disableNames {
			logName = "<stripped>"
		}

		displayName := client.DisplayName
		if displayName == "" && opts.resolver != nil {
			if name, err := opts.resolver.DisplayName(p.SrcAddr.IP); err == nil {
				displayName = name
			}
		}

		switch client.AuthPolicy {
		case clients.PolicyReject:
			logger.Warn("auth rejected by client policy", "user", logName, "client", displayName)
			metrics.AuthResponses.WithLabelValues("reject-policy").Inc()
			return rejectPacket(p), nil

		case clients.PolicyProxyOnly:
			metrics.AuthResponses.WithLabelValues("reject-no-proxy").Inc()
			return nil, fmt.Errorf("auth_policy proxy-only but no proxy target configured for %s", key)
		}

		var password string
		if a, ok := p.Get(dictionary.RADIUSAttr(2)); ok {
			password = string(radiuscodec.DeobfuscateUserPassword(a.Value, client.Secret, p.Vector))
		}
		if opts.logDetail && opts.logPasswords {
			logger.Info("auth request detail", "user", logName, "password", password, "client", displayName)
		} else if opts.logDetail {
			logger.Info("auth request detail", "user", logName, "client", displayName)
		}

		accept := backend == nil
		if backend != nil {
			var err error
			accept, err = backend.Authenticate(username, password)
			if err != nil {
				metrics.AuthResponses.WithLabelValues("error").Inc()
				return nil, fmt.Errorf("authenticating %s: %w", logName, err)
			}
		}

		if !accept {
			if opts.logFailures {
				logger.Warn("authentication failed", "user", logName, "client", displayName)
			}
			metrics.AuthResponses.WithLabelValues("reject").Inc()
			return rejectPacket(p), nil
		}

		metrics.AuthResponses.WithLabelValues("accept").Inc()
		return &packet.Packet{
			Code:   radiuscodec.CodeAccessAccept,
			ID:     p.ID,
			Vector: p.Vector,
		}, nil
	}
}

func rejectPacket(req *packet.Packet) *packet.Packet {
	return &packet.Packet{
		Code:   radiuscodec.CodeAccessReject,
		ID:     req.ID,
		Vector: req.Vector,
	}
}

// newDHCPHandler builds the dispatch.Handler the DHCP bridge socket
// runs. It decodes the admitted datagram's option chain and logs the
// message type; no lease/pool allocation backend is wired, so every
// request passes through dedup, admission, and the worker pool but
// draws no reply.
func newDHCPHandler(logger *slog.Logger) dispatch.Handler {
	return func(ctx context.Context, rec *request.Record) (*packet.Packet, error) {
		msgType := "unknown"
		if p := rec.Packet; p != nil {
			if a, ok := p.Get(dictionary.DHCPOption(53)); ok && len(a.Value) == 1 {
				msgType = dhcpMessageTypeName(a.Value[0])
			}
		}
		logger.Debug("dhcp datagram admitted, no lease backend configured",
			"xid", rec.Packet.ID, "msg_type", msgType)
		return nil, nil
	}
}

func dhcpMessageTypeName(code byte) string {
	switch code {
	case 1:
		return "discover"
	case 2:
		return "offer"
	case 3:
		return "request"
	case 4:
		return "decline"
	case 5:
		return "ack"
	case 6:
		return "nak"
	case 7:
		return "release"
	case 8:
		return "inform"
	default:
		return "unknown"
	}
}

// listenUDP opens a UDP socket with SO_REUSEADDR/SO_BROADCAST set and,
// when iface is non-empty, pinned to that interface via
// SO_BINDTODEVICE (Linux only; the attempt is logged and ignored
// elsewhere).
func listenUDP(ctx context.Context, addr, iface string, logger *slog.Logger) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var firstErr error
			c.Control(func(fd uintptr) {
				if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
					logger.Warn("failed to set SO_REUSEADDR", "error", err)
				}
				if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1); err != nil {
					logger.Warn("failed to set SO_BROADCAST", "error", err)
					firstErr = err
				}
				if iface != "" {
					if err := syscall.SetsockoptString(int(fd), syscall.SOL_SOCKET, soBindToDevice, iface); err != nil {
						logger.Debug("SO_BINDTODEVICE not available", "interface", iface, "error", err)
					}
				}
			})
			return firstErr
		},
	}

	pc, err := lc.ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	return pc.(*net.UDPConn), nil
}

// openLogOutput resolves the -l flag to a writer: "stdout" (or empty)
// goes to os.Stdout, "syslog" dials the local syslog daemon, anything
// else is treated as a directory holding radiusd.log.
func openLogOutput(dir string) (out io.Writer, closeFn func(), err error) {
	switch dir {
	case "", "stdout":
		return os.Stdout, func() {}, nil
	case "syslog":
		w, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, "radiusd")
		if err != nil {
			return nil, nil, fmt.Errorf("opening syslog: %w", err)
		}
		return w, func() { w.Close() }, nil
	default:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory %s: %w", dir, err)
		}
		f, err := os.OpenFile(filepath.Join(dir, "radiusd.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		return f, func() { f.Close() }, nil
	}
}

// systemDNSServer reads the host's resolver configuration and returns
// its first nameserver as a host:port string, for reverse-lookup
// display-name resolution when no explicit resolver is configured.
func systemDNSServer() (string, error) {
	cc, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return "", fmt.Errorf("reading resolv.conf: %w", err)
	}
	if len(cc.Servers) == 0 {
		return "", fmt.Errorf("no nameservers configured")
	}
	port := cc.Port
	if port == "" {
		port = "53"
	}
	return net.JoinHostPort(cc.Servers[0], port), nil
}

func clientMap(entries []config.ClientConfig) map[string]*clients.Client {
	m := make(map[string]*clients.Client, len(entries))
	for _, c := range entries {
		policy := clients.PolicyAccept
		switch c.AuthPolicy {
		case "reject":
			policy = clients.PolicyReject
		case "proxy-only":
			policy = clients.PolicyProxyOnly
		}
		m[c.Key] = &clients.Client{
			DisplayName: c.DisplayName,
			Secret:      []byte(c.Secret),
			AuthPolicy:  policy,
		}
	}
	return m
}

func proxyTarget(p config.ProxyTargetConfig) (*radiusproxy.Target, error) {
	timeout := 5 * time.Second
	if p.Timeout != "" {
		d, err := time.ParseDuration(p.Timeout)
		if err != nil {
			return nil, fmt.Errorf("timeout: %w", err)
		}
		timeout = d
	}
	return &radiusproxy.Target{
		Address: p.Address,
		Secret:  []byte(p.Secret),
		Timeout: timeout,
		Retries: p.Retries,
	}, nil
}

func overrideHost(addr, host string) string {
	if addr == "" {
		return addr
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return net.JoinHostPort(host, port)
}

func overridePort(addr string, port int) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// countFlag implements flag.Value for a stackable boolean flag ("-x -x -x").
type countFlag int

func (c *countFlag) String() string { return strconv.Itoa(int(*c)) }
func (c *countFlag) Set(string) error {
	*c++
	return nil
}
func (c *countFlag) IsBoolFlag() bool { return true }

// writePIDFile writes the current process ID to path.
func writePIDFile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating PID directory %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

// removePIDFile removes the PID file written by writePIDFile.
func removePIDFile(path string) {
	os.Remove(path)
}
