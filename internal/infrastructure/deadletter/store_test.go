package deadletter

import (
	"path/filepath"
	"testing"

	"github.com/pulsefeed/backend/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "dl.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestParkAndList(t *testing.T) {
	store := openTestStore(t)

	entries := []Entry{
		{Event: domain.Event{ID: 1, Type: domain.EventLike, ActorID: 9}, Reason: "user not found", Attempts: 3},
		{Event: domain.Event{ID: 2, Type: domain.EventShare, ActorID: 9}, Reason: "user not found", Attempts: 3},
	}
	for _, e := range entries {
		if err := store.Park(e); err != nil {
			t.Fatalf("Park: %v", err)
		}
	}

	size, err := store.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 2 {
		t.Errorf("Size = %d, want 2", size)
	}

	listed, err := store.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("got %d entries, want 2", len(listed))
	}
	if listed[0].Event.ID != 1 {
		t.Errorf("oldest entry event id = %d, want 1", listed[0].Event.ID)
	}
	if listed[0].ParkedAt.IsZero() {
		t.Error("ParkedAt not stamped")
	}
}

func TestListHonorsLimit(t *testing.T) {
	store := openTestStore(t)

	for i := int64(1); i <= 5; i++ {
		if err := store.Park(Entry{Event: domain.Event{ID: i}}); err != nil {
			t.Fatalf("Park: %v", err)
		}
	}

	listed, err := store.List(3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 3 {
		t.Errorf("got %d entries, want 3", len(listed))
	}
}
