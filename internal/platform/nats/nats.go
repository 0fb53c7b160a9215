// Package nats dials the NATS connection used by the alert sink.
package nats

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"txguard/internal/platform/config"
)

// Connect dials cfg.URL and logs disconnects and reconnects. The caller owns
// the returned connection and should Drain it on shutdown.
func Connect(cfg config.NATSConfig, log *slog.Logger) (*nats.Conn, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats: no url configured")
	}
	if log == nil {
		log = slog.Default()
	}
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}
