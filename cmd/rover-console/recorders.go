package main

import (
	"context"
	"errors"
	"strings"

	"rover-console/internal/config"
	"rover-console/internal/logging"
	"rover-console/internal/record"
)

// newRecorders builds the configured telemetry recorders. The returned
// MultiRecorder may be empty but is never nil; the caller closes it.
func newRecorders(ctx context.Context, cfg *config.Config) (*record.MultiRecorder, error) {
	log := logging.FromContext(ctx)
	var rs []record.Recorder
	fail := func(err error) (*record.MultiRecorder, error) {
		return nil, errors.Join(err, record.NewMultiRecorder(rs...).Close())
	}

	if path := cfg.Record.File; path != "" {
		fr, err := record.NewFileRecorder(path)
		if err != nil {
			return fail(err)
		}
		log.Info("recording telemetry to file", "path", path)
		rs = append(rs, fr)
	}
	if g := cfg.Record.Greptime; g.Endpoint != "" {
		gr, err := record.NewGreptimeRecorder(g.Endpoint, g.Database, g.Table)
		if err != nil {
			return fail(err)
		}
		log.Info("recording telemetry to GreptimeDB", "endpoint", g.Endpoint, "table", g.Table)
		rs = append(rs, gr)
	}
	if m := cfg.Record.MQTT; m.Broker != "" {
		mr, err := record.NewMQTTRecorder(ctx, m.Broker, m.ClientID, cfg.RoverID)
		if err != nil {
			return fail(err)
		}
		log.Info("publishing telemetry over MQTT", "broker", m.Broker, "topic", record.TelemetryTopic(cfg.RoverID))
		rs = append(rs, mr)
	}
	return record.NewMultiRecorder(rs...), nil
}

// recordingLabel names the enabled recorders for the status bar.
func recordingLabel(cfg *config.Config) string {
	var parts []string
	if cfg.Record.File != "" {
		parts = append(parts, "file")
	}
	if cfg.Record.Greptime.Endpoint != "" {
		parts = append(parts, "greptime")
	}
	if cfg.Record.MQTT.Broker != "" {
		parts = append(parts, "mqtt")
	}
	return strings.Join(parts, "+")
}
