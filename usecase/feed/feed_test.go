package feed

import (
	"context"
	"testing"

	"github.com/pulsefeed/backend/domain"
)

type fakeNotificationRepo struct {
	notifications []domain.Notification
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	f.notifications = append(f.notifications, *n)
	return n, nil
}

func (f *fakeNotificationRepo) MarkDelivered(ctx context.Context, id int64, deliveryTimeMs int) error {
	return nil
}

func (f *fakeNotificationRepo) ListRecent(ctx context.Context, limit int) ([]domain.Notification, error) {
	if limit > len(f.notifications) {
		limit = len(f.notifications)
	}
	return f.notifications[:limit], nil
}

type fakeUserRepo struct {
	users   map[int64]domain.User
	lookups int
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	f.lookups++
	if user, ok := f.users[id]; ok {
		return &user, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

type fakeSink struct {
	snapshot *domain.SystemMetrics
}

func (f *fakeSink) Latest(ctx context.Context) (*domain.SystemMetrics, error) {
	if f.snapshot == nil {
		return nil, domain.ErrMetricsNotFound
	}
	return f.snapshot, nil
}

func (f *fakeSink) AddQueued(ctx context.Context, delta int) (*domain.SystemMetrics, error) {
	return f.snapshot, nil
}

func TestListNotificationsEnrichesActors(t *testing.T) {
	notifications := &fakeNotificationRepo{notifications: []domain.Notification{
		{ID: 1, ActorID: 7, Message: "carol liked your post"},
		{ID: 2, ActorID: 7, Message: "carol shared your post"},
		{ID: 3, ActorID: 404, Message: "someone commented on your post"},
	}}
	users := &fakeUserRepo{users: map[int64]domain.User{
		7: {ID: 7, Username: "carol"},
	}}
	uc := New(notifications, users, &fakeSink{}, nil)

	enriched, err := uc.ListNotifications(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(enriched) != 3 {
		t.Fatalf("got %d items, want 3", len(enriched))
	}
	if enriched[0].ActorUsername != "carol" || enriched[1].ActorUsername != "carol" {
		t.Errorf("usernames = %q, %q, want carol twice", enriched[0].ActorUsername, enriched[1].ActorUsername)
	}
	if enriched[2].ActorUsername != domain.UnknownActor {
		t.Errorf("missing actor resolved to %q, want %q", enriched[2].ActorUsername, domain.UnknownActor)
	}
	// Repeated actors resolve once.
	if users.lookups != 2 {
		t.Errorf("actor lookups = %d, want 2", users.lookups)
	}
}

func TestLatestMetricsFallsBackToDefaults(t *testing.T) {
	uc := New(&fakeNotificationRepo{}, &fakeUserRepo{}, &fakeSink{}, nil)

	snap, err := uc.LatestMetrics(context.Background())
	if err != nil {
		t.Fatalf("LatestMetrics: %v", err)
	}
	if snap.ActiveUsers != domain.DefaultActiveUsers {
		t.Errorf("ActiveUsers = %d, want default %d", snap.ActiveUsers, domain.DefaultActiveUsers)
	}
	if snap.ErrorRate != domain.DefaultErrorRate {
		t.Errorf("ErrorRate = %q, want default %q", snap.ErrorRate, domain.DefaultErrorRate)
	}
}

func TestLatestMetricsReturnsStoredSnapshot(t *testing.T) {
	stored := &domain.SystemMetrics{ID: 1, ActiveUsers: 5, QueueSize: 3, ErrorRate: "0.10%"}
	uc := New(&fakeNotificationRepo{}, &fakeUserRepo{}, &fakeSink{snapshot: stored}, nil)

	snap, err := uc.LatestMetrics(context.Background())
	if err != nil {
		t.Fatalf("LatestMetrics: %v", err)
	}
	if snap.ActiveUsers != 5 || snap.QueueSize != 3 {
		t.Errorf("snapshot = %+v, want stored values", snap)
	}
}
