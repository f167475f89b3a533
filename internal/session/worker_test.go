package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coinhunt/coinhunt-backend-go/internal/anticheat"
	"github.com/coinhunt/coinhunt-backend-go/internal/events"
	"github.com/coinhunt/coinhunt-backend-go/internal/geo"
	"github.com/coinhunt/coinhunt-backend-go/internal/ingest"
	"github.com/coinhunt/coinhunt-backend-go/internal/models"
	"github.com/coinhunt/coinhunt-backend-go/internal/proximity"
)

// Fix timestamps sit near wall-clock now because the worker judges
// last-known-good freshness against time.Now at collect time.
var t0 = time.Now().Add(-30 * time.Second)

type memFlagStore struct {
	mu    sync.Mutex
	flags []*models.CheatFlag
	fail  bool
}

func (s *memFlagStore) Append(flag *models.CheatFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("disk full")
	}
	s.flags = append(s.flags, flag)
	return nil
}

func (s *memFlagStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flags)
}

func testConfig() Config {
	return Config{
		Ingest:       ingest.DefaultOptions,
		Thresholds:   anticheat.DefaultThresholds,
		FixQueueSize: 16,
		GracePeriod:  time.Minute,
	}
}

func testSession() models.Session {
	return models.Session{ID: "sess-1", UserID: "user-1", DeviceID: "device-1", StartedAt: t0}
}

func fixAt(lat, lon float64, offset time.Duration) *models.LocationFix {
	return &models.LocationFix{Latitude: lat, Longitude: lon, AccuracyMeters: 10, Timestamp: t0.Add(offset)}
}

func TestWorker_FixFlowAndCollect(t *testing.T) {
	store := &memFlagStore{}
	sink := events.NewSink(events.NewHub(), store)
	m := NewManager(context.Background(), testConfig(), sink)
	defer m.Shutdown()

	w := m.StartHunt(testSession())
	ctx := context.Background()

	targetLat, targetLon := geo.DestinationPoint(37.7749, -122.4194, 0, 10)
	target := models.Target{
		ID: "coin-1", Latitude: targetLat, Longitude: targetLon,
		CollectionRadiusMeters: 5, MaterializationRadiusMeters: 20, HideRadiusMeters: 30,
	}
	if err := w.Activate(ctx, target); err != nil {
		t.Fatalf("activate: %v", err)
	}

	sub := sink.Subscribe("sess-1", 16)
	defer sink.Unsubscribe("sess-1", sub)

	// Walk in: first fix 50 m out, then within collection range.
	farLat, farLon := geo.DestinationPoint(targetLat, targetLon, 180, 50)
	out, err := w.SubmitFix(ctx, fixAt(farLat, farLon, 0))
	if err != nil {
		t.Fatalf("first fix: %v", err)
	}
	if out.MovementType != models.MovementWalking {
		t.Errorf("first fix movement = %s, want walking", out.MovementType)
	}

	nearLat, nearLon := geo.DestinationPoint(targetLat, targetLon, 180, 3)
	// 47 m in 30 s: still a walk/run, no flags.
	if _, err := w.SubmitFix(ctx, fixAt(nearLat, nearLon, 30*time.Second)); err != nil {
		t.Fatalf("second fix: %v", err)
	}

	snaps, err := w.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snaps) != 1 || snaps[0].State != models.StateCollectible {
		t.Fatalf("snapshot = %+v, want collectible coin-1", snaps)
	}

	event, err := w.Collect(ctx, "coin-1")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if event.Type != models.EventCollected {
		t.Errorf("event = %s, want collected", event.Type)
	}
	if store.count() != 0 {
		t.Errorf("legitimate walk raised %d flags", store.count())
	}

	// materialize, became_collectible, collected all reached the subscriber.
	got := 0
	for len(sub) > 0 {
		<-sub
		got++
	}
	if got != 3 {
		t.Errorf("subscriber received %d events, want 3", got)
	}
}

func TestWorker_RejectsStaleAndInvalidFixes(t *testing.T) {
	store := &memFlagStore{}
	sink := events.NewSink(events.NewHub(), store)
	m := NewManager(context.Background(), testConfig(), sink)
	defer m.Shutdown()

	w := m.StartHunt(testSession())
	ctx := context.Background()

	if _, err := w.SubmitFix(ctx, fixAt(0, 0, 0)); !errors.Is(err, ingest.ErrInvalidCoordinate) {
		t.Errorf("null island error = %v, want ErrInvalidCoordinate", err)
	}
	if _, err := w.SubmitFix(ctx, fixAt(37.7749, -122.4194, 0)); err != nil {
		t.Fatalf("valid fix rejected: %v", err)
	}
	if _, err := w.SubmitFix(ctx, fixAt(37.7750, -122.4194, -time.Second)); !errors.Is(err, ingest.ErrStaleFix) {
		t.Errorf("stale error = %v, want ErrStaleFix", err)
	}
}

func TestWorker_TeleportRaisesFlag(t *testing.T) {
	store := &memFlagStore{}
	sink := events.NewSink(events.NewHub(), store)
	m := NewManager(context.Background(), testConfig(), sink)
	defer m.Shutdown()

	w := m.StartHunt(testSession())
	ctx := context.Background()

	w.SubmitFix(ctx, fixAt(37.7749, -122.4194, 0))
	lat, lon := geo.DestinationPoint(37.7749, -122.4194, 0, 1500)
	out, err := w.SubmitFix(ctx, fixAt(lat, lon, 5*time.Second))
	if err != nil {
		t.Fatalf("teleport fix: %v", err)
	}
	if out.FlagCount != 1 {
		t.Fatalf("flag count = %d, want 1", out.FlagCount)
	}
	if store.count() != 1 || store.flags[0].Reason != models.ReasonTeleportation {
		t.Fatalf("stored flags = %+v, want teleportation", store.flags)
	}
}

func TestWorker_CollectWithoutLocation(t *testing.T) {
	store := &memFlagStore{}
	sink := events.NewSink(events.NewHub(), store)
	m := NewManager(context.Background(), testConfig(), sink)
	defer m.Shutdown()

	w := m.StartHunt(testSession())
	ctx := context.Background()
	w.Activate(ctx, models.Target{ID: "coin-1", Latitude: 37.7749, Longitude: -122.4194,
		CollectionRadiusMeters: 5, MaterializationRadiusMeters: 20, HideRadiusMeters: 30})

	if _, err := w.Collect(ctx, "coin-1"); !errors.Is(err, ErrNoLocation) {
		t.Errorf("error = %v, want ErrNoLocation", err)
	}
}

func TestWorker_CollectRejectedOutsideCollectibleState(t *testing.T) {
	store := &memFlagStore{}
	sink := events.NewSink(events.NewHub(), store)
	m := NewManager(context.Background(), testConfig(), sink)
	defer m.Shutdown()

	w := m.StartHunt(testSession())
	ctx := context.Background()

	targetLat, targetLon := geo.DestinationPoint(37.7749, -122.4194, 90, 100)
	w.Activate(ctx, models.Target{ID: "coin-1", Latitude: targetLat, Longitude: targetLon,
		CollectionRadiusMeters: 5, MaterializationRadiusMeters: 20, HideRadiusMeters: 30})
	w.SubmitFix(ctx, fixAt(37.7749, -122.4194, 0)) // 100 m away, approaching

	if _, err := w.Collect(ctx, "coin-1"); !errors.Is(err, proximity.ErrNotCollectible) {
		t.Errorf("error = %v, want ErrNotCollectible", err)
	}
}

func TestManager_EndIsIdempotent(t *testing.T) {
	store := &memFlagStore{}
	sink := events.NewSink(events.NewHub(), store)
	m := NewManager(context.Background(), testConfig(), sink)
	defer m.Shutdown()

	m.StartHunt(testSession())
	if !m.End("sess-1") {
		t.Error("first End returned false")
	}
	if m.End("sess-1") {
		t.Error("second End returned true")
	}
	if _, err := m.Get("sess-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get after End: error = %v, want ErrSessionNotFound", err)
	}
	if m.ActiveCount() != 0 {
		t.Errorf("active count = %d, want 0", m.ActiveCount())
	}
}

func TestManager_FlagPersistFailureIsFatal(t *testing.T) {
	store := &memFlagStore{fail: true}
	sink := events.NewSink(events.NewHub(), store)
	m := NewManager(context.Background(), testConfig(), sink)

	w := m.StartHunt(testSession())
	ctx := context.Background()

	w.SubmitFix(ctx, fixAt(37.7749, -122.4194, 0))
	lat, lon := geo.DestinationPoint(37.7749, -122.4194, 0, 1500)
	if _, err := w.SubmitFix(ctx, fixAt(lat, lon, 5*time.Second)); err == nil {
		t.Fatal("expected error when flag persistence fails")
	}

	select {
	case <-m.Err():
	case <-time.After(2 * time.Second):
		t.Fatal("manager group not cancelled after persistence failure")
	}
	if err := m.Shutdown(); err == nil {
		t.Error("Shutdown error = nil, want persistence failure")
	}
}
