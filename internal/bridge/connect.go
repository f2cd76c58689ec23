package bridge

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Connect dials NATS with reconnect handling logged through zerolog.
func Connect(url, name string) (*nats.Conn, error) {
	log.Info().Str("url", url).Str("name", name).Msg("bridge connecting")

	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(60),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("bridge disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("bridge reconnected")
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info().Msg("bridge connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("bridge: connect %s: %w", url, err)
	}
	log.Info().Str("url", nc.ConnectedUrl()).Msg("bridge connected")
	return nc, nil
}
