package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jacklowrie/chordnet/internal/bootstrap"
	"github.com/jacklowrie/chordnet/internal/chordnode"
	"github.com/jacklowrie/chordnet/internal/config"
	"github.com/jacklowrie/chordnet/internal/logger"
	zapfactory "github.com/jacklowrie/chordnet/internal/logger/zap"
	"github.com/jacklowrie/chordnet/internal/ring"
	"github.com/jacklowrie/chordnet/internal/telemetry"
	"github.com/jacklowrie/chordnet/internal/transport"
)

// app bundles everything wired up before a node calls Create or Join.
type app struct {
	cfg    *config.Config
	lgr    logger.Logger
	sp     ring.Space
	self   transport.Address
	ln     net.Listener
	node   *chordnode.Node
	source bootstrap.Source

	stopTracer func(context.Context) error
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration from %q: %w", configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var lgr logger.Logger
	if cfg.Logger.Active {
		zapLog, err := zapfactory.New(cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("initializing logger: %w", err)
		}
		lgr = zapfactory.NewAdapter(zapLog)
	} else {
		lgr = &logger.NopLogger{}
	}
	cfg.Log(lgr)

	stopTracer, err := telemetry.InitTracer(ctx, telemetry.Config{
		Enabled:      cfg.Tracing.Enabled,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		ServiceName:  cfg.Tracing.ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	sp, err := ring.NewSpace(cfg.Node.IDBits)
	if err != nil {
		stopTracer(context.Background())
		return nil, fmt.Errorf("initializing identifier space: %w", err)
	}

	ln, err := net.Listen("tcp", cfg.Node.Bind)
	if err != nil {
		stopTracer(context.Background())
		return nil, fmt.Errorf("binding listener on %q: %w", cfg.Node.Bind, err)
	}

	host := cfg.Node.Host
	if host == "" {
		host = ln.Addr().(*net.TCPAddr).IP.String()
	}
	port := cfg.Node.Port
	if port == 0 {
		port = uint16(ln.Addr().(*net.TCPAddr).Port)
	}
	self := transport.NewAddress(sp, host, port)
	lgr = lgr.Named("node").With(logger.F("self", self.Serialize()))
	lgr.Info("node identity resolved")

	var source bootstrap.Source
	switch cfg.Bootstrap.Mode {
	case "route53":
		source, err = bootstrap.NewRoute53(ctx, cfg.Bootstrap.Route53)
	case "static":
		source = bootstrap.NewStatic(cfg.Bootstrap.Peers)
	default:
		err = fmt.Errorf("unsupported bootstrap mode %q", cfg.Bootstrap.Mode)
	}
	if err != nil {
		_ = ln.Close()
		stopTracer(context.Background())
		return nil, fmt.Errorf("initializing bootstrap source: %w", err)
	}

	node := chordnode.New(self, sp,
		chordnode.WithLogger(lgr),
		chordnode.WithMaintenanceInterval(cfg.Maintenance.Interval),
		chordnode.WithRequestTimeout(cfg.Maintenance.RequestTimeout),
		chordnode.WithMaxConcurrentHandlers(cfg.Node.MaxConcurrent),
	)

	return &app{
		cfg:        cfg,
		lgr:        lgr,
		sp:         sp,
		self:       self,
		ln:         ln,
		node:       node,
		source:     source,
		stopTracer: stopTracer,
	}, nil
}

// runUntilSignal registers self (if the bootstrap source supports it),
// blocks until SIGINT/SIGTERM, then tears everything down in reverse
// order of construction.
func (a *app) runUntilSignal(ctx context.Context) {
	regCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := a.source.Register(regCtx, a.self.Serialize()); err != nil {
		a.lgr.Warn("failed to register with bootstrap source", logger.F("err", err))
	}
	cancel()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	a.lgr.Info("shutdown signal received, stopping")

	deregCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := a.source.Deregister(deregCtx, a.self.Serialize()); err != nil {
		a.lgr.Warn("failed to deregister from bootstrap source", logger.F("err", err))
	}
	cancel()

	a.node.Stop()
	if err := a.stopTracer(context.Background()); err != nil {
		a.lgr.Warn("failed to shut down tracer", logger.F("err", err))
	}
}

func fatal(lgr logger.Logger, msg string, err error) {
	if lgr != nil {
		lgr.Error(msg, logger.F("err", err))
	} else {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	}
	os.Exit(2)
}
