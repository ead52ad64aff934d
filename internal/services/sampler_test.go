package services

import (
	"context"
	"testing"

	"github.com/pulsefeed/backend/domain"
	"github.com/pulsefeed/backend/internal/metrics"
)

func TestSampleMergesAndBroadcasts(t *testing.T) {
	metricsRepo := &fakeMetricsRepo{}
	broadcaster := &fakeBroadcaster{}
	aggregator := metrics.NewAggregator(metricsRepo, nil)

	sampler := NewActiveUserSampler(aggregator, broadcaster, nil, SamplerConfig{MaxJitter: 10})
	sampler.Sample(context.Background())

	calls := broadcaster.snapshot()
	if len(calls) != 1 {
		t.Fatalf("got %d broadcasts, want 1", len(calls))
	}
	if calls[0].kind != "metrics" {
		t.Errorf("kind = %q, want metrics", calls[0].kind)
	}

	snap, ok := calls[0].payload.(*domain.SystemMetrics)
	if !ok {
		t.Fatalf("payload has type %T", calls[0].payload)
	}
	// First sample seeds from defaults, so the gauge stays within jitter range.
	if snap.ActiveUsers < domain.DefaultActiveUsers-10 || snap.ActiveUsers > domain.DefaultActiveUsers+10 {
		t.Errorf("ActiveUsers = %d, want within 10 of %d", snap.ActiveUsers, domain.DefaultActiveUsers)
	}
	if metricsRepo.current == nil {
		t.Fatal("sample did not persist a snapshot")
	}
}
