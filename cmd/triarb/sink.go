package main

import (
	"context"
	"log/slog"

	"triarb/internal/database"
	"triarb/internal/metrics"
	"triarb/internal/model"
)

// Publisher broadcasts opportunities to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, opp model.Opportunity) error
}

// RunSink logs every opportunity and forwards it to the journal and the
// publisher when they are configured. Sink failures are logged and counted,
// never fatal. Opportunities still buffered when ctx ends are counted as dropped.
func RunSink(ctx context.Context, logger *slog.Logger, opps <-chan model.Opportunity, repo database.Repository, pub Publisher) {
	for {
		if ctx.Err() != nil {
			drain(logger, opps)
			return
		}
		select {
		case <-ctx.Done():
			drain(logger, opps)
			return
		case opp, ok := <-opps:
			if !ok {
				return
			}
			deliver(ctx, logger, opp, repo, pub)
		}
	}
}

func deliver(ctx context.Context, logger *slog.Logger, opp model.Opportunity, repo database.Repository, pub Publisher) {
	logger.Info("Arbitrage opportunity",
		"triangle", opp.Triangle,
		"direction", opp.Direction.String(),
		"trigger", opp.TriggerPair,
		"ratio", opp.Ratio,
		"amount", opp.Amount,
		"executable", opp.ExecutableAmount,
		"profit", opp.Profit,
		"asset", opp.ProfitAsset)

	if repo != nil {
		if err := repo.LogOpportunity(ctx, opp); err != nil {
			metrics.SinkErrorsTotal.WithLabelValues("database").Inc()
			logger.Error("Failed to log opportunity", "triangle", opp.Triangle, "error", err)
		}
	}
	if pub != nil {
		if err := pub.Publish(ctx, opp); err != nil {
			metrics.SinkErrorsTotal.WithLabelValues("redis").Inc()
			logger.Error("Failed to publish opportunity", "triangle", opp.Triangle, "error", err)
		}
	}
}

// drain empties the buffer without blocking and returns how many were dropped.
func drain(logger *slog.Logger, opps <-chan model.Opportunity) int {
	dropped := 0
loop:
	for {
		select {
		case _, ok := <-opps:
			if !ok {
				break loop
			}
			dropped++
		default:
			break loop
		}
	}
	if dropped > 0 {
		metrics.OpportunitiesDropped.Add(float64(dropped))
		logger.Warn("Shutdown dropped buffered opportunities", "count", dropped)
	}
	return dropped
}
