// Command arcmdd serves the command table, /decode and /encode without a
// device link.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/auth"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/config"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/introspect"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/observability"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/schema"
)

func main() {
	observability.InitLogger("arcmdd")
	configPath := flag.String("config", "", "TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	log.Info().Str("path", *configPath).Msg("loaded config")

	var opts []introspect.Option
	if cfg.HTTP.AuthToken != "" {
		opts = append(opts, introspect.WithAuth(auth.StaticToken{Token: cfg.HTTP.AuthToken}))
	}
	server := introspect.New(cfg.Name, cfg.HTTP.Addr, cfg.HTTP.CorsOrigins, schema.Default(), nil, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("id", server.ID).Str("addr", server.Addr).Int("commands", schema.Default().Len()).Msg("arcmdd started")
	if err := server.Serve(ctx); err != nil {
		log.Fatal().Err(err).Msg("arcmdd stopped")
	}
}
