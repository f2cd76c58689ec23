package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/auth"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/bridge"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/config"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/dispatch"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/introspect"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/listeners"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/monitor"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/observability"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/schema"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/session"
)

// link is one device connection with everything hanging off it.
type link struct {
	cfg        config.Config
	table      *schema.Table
	registry   *dispatch.Registry
	dispatcher *dispatch.Dispatcher
	tracker    *monitor.Tracker
	session    *session.Session
	conn       net.Conn
	nc         *nats.Conn
	http       *introspect.Server
}

// buildLink wires the dispatch path around conn. NATS is dialled when
// enabled; the HTTP server is built but not started.
func buildLink(cfg config.Config, conn net.Conn) (*link, error) {
	policy, err := listeners.NewFirmwarePolicy(cfg.Session.MinFirmware)
	if err != nil {
		return nil, err
	}

	l := &link{
		cfg:      cfg,
		table:    schema.Default(),
		registry: dispatch.NewRegistry(),
		tracker:  monitor.NewTracker(cfg.Monitor.MaxLines),
		conn:     conn,
	}

	extra := []dispatch.Hooks{{
		OnDecoded:     l.tracker.Observe,
		OnDecodeError: l.tracker.ObserveError,
	}}
	if cfg.NATS.Enabled {
		l.nc, err = bridge.Connect(cfg.NATS.URL, cfg.Name)
		if err != nil {
			return nil, err
		}
		b := bridge.New(l.nc, bridge.Options{
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			GlobalSubject: cfg.NATS.GlobalSubject,
			Source:        cfg.Name,
		})
		extra = append(extra, b.Hooks())
	}
	l.dispatcher = dispatch.NewDispatcher(l.table, l.registry,
		dispatch.WithHooks(observability.DispatchHooks(extra...)))

	l.session, err = session.New(conn, l.dispatcher, cfg.Session.ToSession(),
		session.WithHooks(observability.SessionHooks()))
	if err != nil {
		l.close()
		return nil, err
	}

	l.watch(policy)
	if cfg.HTTP.Enabled {
		l.http = introspect.New(cfg.Name, cfg.HTTP.Addr, cfg.HTTP.CorsOrigins, l.table, l.tracker,
			httpOptions(cfg.HTTP)...)
	}
	return l, nil
}

// watch registers the log-only listeners every link carries.
func (l *link) watch(policy *listeners.FirmwarePolicy) {
	listeners.OnProductVersion(l.registry, func(pv listeners.ProductVersion) {
		ev := log.Info()
		if !policy.Allows(pv.Version) {
			ev = log.Warn().Str("required", policy.String())
		}
		ev.Str("software", pv.Software).Str("hardware", pv.Hardware).Msg("product version")
	})
	listeners.OnFlyingStateChanged(l.registry, func(s listeners.FlyingState) {
		log.Info().Str("state", s.String()).Msg("flying state")
	})
	listeners.OnBatteryStateChanged(l.registry, func(percent uint8) {
		log.Debug().Uint8("percent", percent).Msg("battery")
	})
	listeners.CollectCountryList(l.registry, func(codes []string) {
		log.Info().Strs("countries", codes).Msg("country list")
	})
}

// run serves the session and, when enabled, HTTP until ctx ends or either
// fails.
func (l *link) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- l.session.Run(ctx)
		cancel()
	}()
	if l.http != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- l.http.Serve(ctx)
			cancel()
		}()
	}
	wg.Wait()
	close(errs)

	var out error
	for err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			out = errors.Join(out, err)
		}
	}
	return out
}

func (l *link) close() {
	if l.nc != nil {
		l.nc.Close()
	}
	if l.conn != nil {
		_ = l.conn.Close()
	}
}

func httpOptions(cfg config.HTTPConfig) []introspect.Option {
	if cfg.AuthToken == "" {
		return nil
	}
	return []introspect.Option{introspect.WithAuth(auth.StaticToken{Token: cfg.AuthToken})}
}

func dial(ctx context.Context, t config.TransportConfig) (net.Conn, error) {
	var d net.Dialer
	if t.Network == "udp" && t.Listen != "" {
		laddr, err := net.ResolveUDPAddr("udp", t.Listen)
		if err != nil {
			return nil, fmt.Errorf("resolve listen %s: %w", t.Listen, err)
		}
		d.LocalAddr = laddr
	}
	conn, err := d.DialContext(ctx, t.Network, t.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", t.Network, t.Addr, err)
	}
	log.Info().Str("network", t.Network).Str("addr", t.Addr).Msg("link connected")
	return conn, nil
}
