package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/flowview/internal/config"
	"github.com/alfredjeanlab/flowview/internal/events"
	flowsync "github.com/alfredjeanlab/flowview/internal/sync"
)

// EventSources returns the ticker sources cfg enables: the engine's SSE
// stream always, plus a NATS subject when FLOWVIEW_NATS_URL is set. The
// returned cleanup closes any connection opened here.
func EventSources(cfg *config.Config, logger *slog.Logger) ([]events.Source, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	sources := []events.Source{&events.SSESource{
		URL:    strings.TrimRight(cfg.APIURL(), "/") + "/event",
		Token:  cfg.Token,
		Policy: ReconnectPolicy(cfg),
		Logger: logger,
	}}
	cleanup := func() {}

	if cfg.NATSURL != "" {
		sub, err := events.NewNATSSubscriber(cfg.NATSURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Warn("events: nats disconnected", "error", err)
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				logger.Info("events: nats reconnected", "url", nc.ConnectedUrl())
			}),
		)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, &events.NATSSource{Subscriber: sub, Subject: cfg.NATSSubject, Logger: logger})
		cleanup = func() { _ = sub.Close() }
	}
	return sources, cleanup, nil
}

// Destinations returns the export targets cfg enables.
func Destinations(ctx context.Context, cfg *config.Config) ([]flowsync.Destination, error) {
	var dests []flowsync.Destination
	if cfg.ExportDir != "" {
		dests = append(dests, flowsync.NewFileDestination(cfg.ExportDir))
	}
	if cfg.ExportS3Bucket != "" {
		s3, err := flowsync.NewS3Destination(ctx, cfg.ExportS3Bucket, cfg.ExportS3Key, cfg.ExportS3Region, cfg.ExportS3Endpoint)
		if err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
		dests = append(dests, s3)
	}
	return dests, nil
}
