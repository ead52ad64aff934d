package services

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/pulsefeed/backend/internal/metrics"
)

// SamplerConfig controls the active-user gauge refresh.
type SamplerConfig struct {
	Interval  time.Duration
	MaxJitter int
}

// ActiveUserSampler periodically nudges the active-user gauge by a small
// random delta and pushes the resulting snapshot to subscribers. It merges
// through the aggregator, so it exercises the same single-writer path as the
// event processor and can never lose (or cause the loss of) a concurrent
// delivery merge.
type ActiveUserSampler struct {
	aggregator  *metrics.Aggregator
	broadcaster Broadcaster
	logger      *zap.Logger
	cfg         SamplerConfig
	stopCh      chan struct{}
}

func NewActiveUserSampler(aggregator *metrics.Aggregator, broadcaster Broadcaster, logger *zap.Logger, cfg SamplerConfig) *ActiveUserSampler {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.MaxJitter <= 0 {
		cfg.MaxJitter = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActiveUserSampler{
		aggregator:  aggregator,
		broadcaster: broadcaster,
		logger:      logger,
		cfg:         cfg,
		stopCh:      make(chan struct{}),
	}
}

func (s *ActiveUserSampler) Start() {
	go s.loop()
	s.logger.Info("active user sampler started", zap.Duration("interval", s.cfg.Interval))
}

func (s *ActiveUserSampler) Stop() {
	close(s.stopCh)
}

func (s *ActiveUserSampler) loop() {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sample(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sample applies one jitter merge and broadcasts the result.
func (s *ActiveUserSampler) Sample(ctx context.Context) {
	delta := rand.Intn(2*s.cfg.MaxJitter+1) - s.cfg.MaxJitter

	snapshot, err := s.aggregator.AdjustActiveUsers(ctx, delta)
	if err != nil {
		s.logger.Warn("active user sample failed", zap.Error(err))
		return
	}
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(kindMetrics, snapshot)
	}
}
