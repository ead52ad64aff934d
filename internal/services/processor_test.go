package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pulsefeed/backend/domain"
	"github.com/pulsefeed/backend/internal/infrastructure/deadletter"
	"github.com/pulsefeed/backend/internal/metrics"
)

type fakeEventRepo struct {
	mu     sync.Mutex
	events []domain.Event
	nextID int64
}

func (f *fakeEventRepo) Create(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	event.ID = f.nextID
	event.CreatedAt = time.Now()
	f.events = append(f.events, *event)
	return event, nil
}

func (f *fakeEventRepo) ListUnprocessed(ctx context.Context) ([]domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pending []domain.Event
	for _, e := range f.events {
		if !e.Processed {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

func (f *fakeEventRepo) MarkProcessed(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.events {
		if f.events[i].ID == id && !f.events[i].Processed {
			f.events[i].Processed = true
			return nil
		}
	}
	return domain.ErrEventNotFound
}

func (f *fakeEventRepo) get(id int64) domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ID == id {
			return e
		}
	}
	return domain.Event{}
}

type fakeUserRepo struct {
	users map[int64]domain.User
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if user, ok := f.users[id]; ok {
		return &user, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			return &user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

type fakeNotificationRepo struct {
	mu             sync.Mutex
	notifications  []domain.Notification
	nextID         int64
	failNextCreate bool
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNextCreate {
		f.failNextCreate = false
		return nil, errors.New("storage hiccup")
	}
	f.nextID++
	n.ID = f.nextID
	n.CreatedAt = time.Now()
	f.notifications = append(f.notifications, *n)
	return n, nil
}

func (f *fakeNotificationRepo) MarkDelivered(ctx context.Context, id int64, deliveryTimeMs int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].ID == id {
			f.notifications[i].Delivered = true
			ms := deliveryTimeMs
			f.notifications[i].DeliveryTimeMs = &ms
			return nil
		}
	}
	return domain.ErrNotificationNotFound
}

func (f *fakeNotificationRepo) ListRecent(ctx context.Context, limit int) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Notification, len(f.notifications))
	copy(out, f.notifications)
	return out, nil
}

// fakeMetricsRepo mirrors the single-row store the aggregator expects.
type fakeMetricsRepo struct {
	mu      sync.Mutex
	current *domain.SystemMetrics
	nextID  int64
}

func (f *fakeMetricsRepo) Latest(ctx context.Context) (*domain.SystemMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return nil, domain.ErrMetricsNotFound
	}
	copied := *f.current
	return &copied, nil
}

func (f *fakeMetricsRepo) Insert(ctx context.Context, m *domain.SystemMetrics) (*domain.SystemMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m.ID = f.nextID
	copied := *m
	f.current = &copied
	return m, nil
}

func (f *fakeMetricsRepo) Update(ctx context.Context, m *domain.SystemMetrics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil || f.current.ID != m.ID {
		return domain.ErrMetricsNotFound
	}
	copied := *m
	f.current = &copied
	return nil
}

type broadcastCall struct {
	kind    string
	payload interface{}
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (f *fakeBroadcaster) Broadcast(kind string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, broadcastCall{kind: kind, payload: payload})
}

func (f *fakeBroadcaster) snapshot() []broadcastCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]broadcastCall, len(f.calls))
	copy(out, f.calls)
	return out
}

type testPipeline struct {
	processor     *EventProcessor
	events        *fakeEventRepo
	users         *fakeUserRepo
	notifications *fakeNotificationRepo
	metricsRepo   *fakeMetricsRepo
	broadcaster   *fakeBroadcaster
}

func newTestPipeline(t *testing.T, cfg ProcessorConfig, store *deadletter.Store) *testPipeline {
	t.Helper()

	events := &fakeEventRepo{}
	users := &fakeUserRepo{users: map[int64]domain.User{
		1: {ID: 1, Username: "bob"},
		3: {ID: 3, Username: "alice"},
	}}
	notifications := &fakeNotificationRepo{}
	metricsRepo := &fakeMetricsRepo{}
	broadcaster := &fakeBroadcaster{}

	processor := NewEventProcessor(
		events,
		users,
		notifications,
		metrics.NewAggregator(metricsRepo, nil),
		broadcaster,
		nil,
		store,
		nil,
		cfg,
	)
	return &testPipeline{
		processor:     processor,
		events:        events,
		users:         users,
		notifications: notifications,
		metricsRepo:   metricsRepo,
		broadcaster:   broadcaster,
	}
}

func TestRunCycleDeliversNotification(t *testing.T) {
	p := newTestPipeline(t, ProcessorConfig{}, nil)
	ctx := context.Background()

	event := &domain.Event{Type: domain.EventLike, ActorID: 1, TargetUserID: 2}
	if _, err := p.events.Create(ctx, event); err != nil {
		t.Fatalf("create event: %v", err)
	}

	if err := p.processor.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	stored := p.events.get(event.ID)
	if !stored.Processed {
		t.Error("event not marked processed")
	}

	if len(p.notifications.notifications) != 1 {
		t.Fatalf("got %d notifications, want 1", len(p.notifications.notifications))
	}
	n := p.notifications.notifications[0]
	if n.Message != "bob liked your post" {
		t.Errorf("Message = %q, want %q", n.Message, "bob liked your post")
	}
	if n.TargetUserID != 2 {
		t.Errorf("TargetUserID = %d, want 2", n.TargetUserID)
	}
	if !n.Delivered {
		t.Error("notification not marked delivered")
	}
	if n.DeliveryTimeMs == nil || *n.DeliveryTimeMs < 0 {
		t.Errorf("DeliveryTimeMs = %v, want non-negative", n.DeliveryTimeMs)
	}

	calls := p.broadcaster.snapshot()
	if len(calls) != 2 {
		t.Fatalf("got %d broadcasts, want 2", len(calls))
	}
	if calls[0].kind != "notification" || calls[1].kind != "metrics" {
		t.Errorf("broadcast kinds = [%s, %s], want [notification, metrics]", calls[0].kind, calls[1].kind)
	}

	enriched, ok := calls[0].payload.(domain.EnrichedNotification)
	if !ok {
		t.Fatalf("notification payload has type %T", calls[0].payload)
	}
	if enriched.ActorUsername != "bob" {
		t.Errorf("ActorUsername = %q, want %q", enriched.ActorUsername, "bob")
	}

	snap, ok := calls[1].payload.(*domain.SystemMetrics)
	if !ok {
		t.Fatalf("metrics payload has type %T", calls[1].payload)
	}
	if snap.NotificationsSent != domain.DefaultNotificationsSent+1 {
		t.Errorf("NotificationsSent = %d, want %d", snap.NotificationsSent, domain.DefaultNotificationsSent+1)
	}
}

func TestRunCycleLeavesUnresolvableActorPending(t *testing.T) {
	p := newTestPipeline(t, ProcessorConfig{}, nil)
	ctx := context.Background()

	event := &domain.Event{Type: domain.EventFollow, ActorID: 99, TargetUserID: 2}
	if _, err := p.events.Create(ctx, event); err != nil {
		t.Fatalf("create event: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := p.processor.RunCycle(ctx); err != nil {
			t.Fatalf("RunCycle %d: %v", i, err)
		}
	}

	if p.events.get(event.ID).Processed {
		t.Error("event with unresolvable actor was marked processed")
	}
	if len(p.notifications.notifications) != 0 {
		t.Errorf("got %d notifications, want 0", len(p.notifications.notifications))
	}
	if calls := p.broadcaster.snapshot(); len(calls) != 0 {
		t.Errorf("got %d broadcasts, want 0", len(calls))
	}
}

func TestRunCycleIsolatesFailuresBetweenEvents(t *testing.T) {
	p := newTestPipeline(t, ProcessorConfig{}, nil)
	ctx := context.Background()

	first := &domain.Event{Type: domain.EventLike, ActorID: 1, TargetUserID: 2}
	second := &domain.Event{Type: domain.EventFollow, ActorID: 3, TargetUserID: 2}
	if _, err := p.events.Create(ctx, first); err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := p.events.Create(ctx, second); err != nil {
		t.Fatalf("create second: %v", err)
	}

	p.notifications.failNextCreate = true
	if err := p.processor.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if p.events.get(first.ID).Processed {
		t.Error("failed event was marked processed")
	}
	if !p.events.get(second.ID).Processed {
		t.Error("healthy event was not processed after a failure earlier in the batch")
	}
	if len(p.notifications.notifications) != 1 {
		t.Fatalf("got %d notifications, want 1", len(p.notifications.notifications))
	}
	if got := p.notifications.notifications[0].Message; got != "alice started following you" {
		t.Errorf("Message = %q, want %q", got, "alice started following you")
	}
}

func TestRunCycleWithNoPendingEventsIsNoOp(t *testing.T) {
	p := newTestPipeline(t, ProcessorConfig{}, nil)

	if err := p.processor.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if calls := p.broadcaster.snapshot(); len(calls) != 0 {
		t.Errorf("got %d broadcasts, want 0", len(calls))
	}
	if p.metricsRepo.current != nil {
		t.Error("metrics snapshot written by an empty cycle")
	}
}

func TestRunCycleSkipsWhileAnotherCycleIsInFlight(t *testing.T) {
	p := newTestPipeline(t, ProcessorConfig{}, nil)
	ctx := context.Background()

	event := &domain.Event{Type: domain.EventLike, ActorID: 1, TargetUserID: 2}
	if _, err := p.events.Create(ctx, event); err != nil {
		t.Fatalf("create event: %v", err)
	}

	p.processor.inFlight.Store(true)
	if err := p.processor.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if p.events.get(event.ID).Processed {
		t.Error("overlapping cycle processed an event")
	}

	p.processor.inFlight.Store(false)
	if err := p.processor.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if !p.events.get(event.ID).Processed {
		t.Error("event not processed once the guard was released")
	}
}

func TestDeadLetterAfterMaxAttempts(t *testing.T) {
	store, err := deadletter.Open(filepath.Join(t.TempDir(), "dl.db"))
	if err != nil {
		t.Fatalf("open dead-letter store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	p := newTestPipeline(t, ProcessorConfig{MaxAttempts: 2}, store)
	ctx := context.Background()

	event := &domain.Event{Type: domain.EventShare, ActorID: 404, TargetUserID: 2}
	if _, err := p.events.Create(ctx, event); err != nil {
		t.Fatalf("create event: %v", err)
	}

	if err := p.processor.RunCycle(ctx); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if p.events.get(event.ID).Processed {
		t.Fatal("event retired before reaching the attempt bound")
	}

	if err := p.processor.RunCycle(ctx); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if !p.events.get(event.ID).Processed {
		t.Error("parked event was not retired from the pending queue")
	}

	entries, err := store.List(10)
	if err != nil {
		t.Fatalf("list dead letters: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d dead letters, want 1", len(entries))
	}
	if entries[0].Event.ID != event.ID || entries[0].Attempts != 2 {
		t.Errorf("entry = {event %d, attempts %d}, want {event %d, attempts 2}",
			entries[0].Event.ID, entries[0].Attempts, event.ID)
	}
}
