package main

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"dataingest/internal/config"
	"dataingest/internal/metrics"
	"dataingest/internal/metrics/datadog"
	"dataingest/internal/metrics/prompush"
)

// setupMetrics installs the configured metrics backend and returns the
// function that flushes and uninstalls it. Backend init failures are logged
// and leave metrics disabled; they never fail the run.
func setupMetrics(ctx context.Context, mc config.MetricsConfig, log *zap.Logger) func() {
	backend := strings.ToLower(strings.TrimSpace(mc.Backend))
	job := mc.Job
	if job == "" {
		job = "ingest"
	}

	switch backend {
	case "pushgateway":
		b, err := prompush.NewBackend(job, mc.PushgatewayURL)
		if err != nil {
			log.Warn("metrics: pushgateway backend unavailable; metrics disabled", zap.Error(err))
			return func() {}
		}
		log.Debug("metrics: pushgateway", zap.String("url", mc.PushgatewayURL), zap.String("job", job))
		metrics.SetBackend(b)
		return func() {
			if err := metrics.Flush(); err != nil {
				log.Warn("metrics: push failed", zap.Error(err))
			}
			metrics.SetBackend(nil)
		}

	case "datadog":
		// The backend flushes on its own ticker; Close does the final flush.
		b, err := datadog.NewBackend(ctx, datadog.Options{
			JobName:    job,
			Tags:       mc.Tags,
			FlushEvery: mc.FlushEvery,
		})
		if err != nil {
			log.Warn("metrics: datadog backend unavailable; metrics disabled", zap.Error(err))
			return func() {}
		}
		log.Debug("metrics: datadog", zap.String("job", job), zap.Strings("tags", mc.Tags))
		metrics.SetBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				log.Warn("metrics: datadog close/flush failed", zap.Error(err))
			}
			metrics.SetBackend(nil)
		}

	case "", "none":
		log.Debug("metrics: disabled")
	default:
		log.Warn("metrics: unknown backend; metrics disabled", zap.String("backend", mc.Backend))
	}
	return func() {}
}
