package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pulsefeed/backend/internal/infrastructure/deadletter"
)

// Monitor probes the service's dependencies on an interval and caches the
// result. The processor consults IsOnline before a drain; the health endpoint
// reports the full status.
type Monitor struct {
	pg          *pgxpool.Pool
	redis       *redislib.Client
	deadLetters *deadletter.Store

	interval time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}

	mu     sync.RWMutex
	status Status
}

func New(pg *pgxpool.Pool, redis *redislib.Client, deadLetters *deadletter.Store, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		pg:          pg,
		redis:       redis,
		deadLetters: deadLetters,
		interval:    interval,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	close(m.stopCh)
}

// IsOnline reports whether the primary store is reachable. Redis being down
// only degrades the auth surface, not processing.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.PostgreSQL
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.refresh()
	for {
		select {
		case <-ticker.C:
			m.refresh()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) refresh() {
	dlOK, dlSize := m.checkDeadLetters()
	status := Status{
		PostgreSQL:     m.checkPostgres(),
		Redis:          m.checkRedis(),
		DeadLetter:     dlOK,
		DeadLetterSize: dlSize,
		LastCheck:      time.Now(),
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}

func (m *Monitor) checkPostgres() bool {
	if m.pg == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return m.pg.Ping(ctx) == nil
}

func (m *Monitor) checkRedis() bool {
	if m.redis == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.redis.Ping(ctx).Err() == nil
}

func (m *Monitor) checkDeadLetters() (bool, int) {
	if m.deadLetters == nil {
		return false, 0
	}
	size, err := m.deadLetters.Size()
	if err != nil {
		m.logger.Warn("dead-letter size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}
