package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/coinhunt/coinhunt-backend-go/internal/models"
)

type memFlagStore struct {
	flags []*models.CheatFlag
	fail  bool
}

func (m *memFlagStore) Append(flag *models.CheatFlag) error {
	if m.fail {
		return errors.New("disk full")
	}
	m.flags = append(m.flags, flag)
	return nil
}

func event(targetID string, typ models.EventType) models.TargetEvent {
	return models.TargetEvent{
		Type: typ, SessionID: "sess-1", TargetID: targetID,
		DistanceMeters: 12, Timestamp: time.Now(),
	}
}

func TestSinkFanOutAndReplay(t *testing.T) {
	sink := NewSink(NewHub(), &memFlagStore{})

	ch := sink.Subscribe("sess-1", 8)
	defer sink.Unsubscribe("sess-1", ch)

	sink.PublishTargetEvents("sess-1", []models.TargetEvent{
		event("coin-a", models.EventMaterialize),
		event("coin-a", models.EventBecameCollectible),
		event("coin-b", models.EventMaterialize),
	})

	if got := len(ch); got != 3 {
		t.Fatalf("delivered %d events, want 3", got)
	}
	var first models.TargetEvent
	if err := json.Unmarshal(<-ch, &first); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if first.Type != models.EventMaterialize || first.TargetID != "coin-a" {
		t.Errorf("first event = %+v", first)
	}

	// Replay keeps only the latest event per target.
	replay := sink.Replay("sess-1")
	if len(replay) != 2 {
		t.Fatalf("replay len = %d, want 2", len(replay))
	}
	byTarget := make(map[string]models.EventType)
	for _, ev := range replay {
		byTarget[ev.TargetID] = ev.Type
	}
	if byTarget["coin-a"] != models.EventBecameCollectible {
		t.Errorf("coin-a replay = %s", byTarget["coin-a"])
	}
	if byTarget["coin-b"] != models.EventMaterialize {
		t.Errorf("coin-b replay = %s", byTarget["coin-b"])
	}

	sink.DropSession("sess-1")
	if replay := sink.Replay("sess-1"); len(replay) != 0 {
		t.Errorf("replay after drop = %d events", len(replay))
	}
}

func TestSinkSlowSubscriberDropsOldest(t *testing.T) {
	sink := NewSink(NewHub(), &memFlagStore{})

	ch := sink.Subscribe("sess-1", 1)
	defer sink.Unsubscribe("sess-1", ch)

	sink.PublishTargetEvents("sess-1", []models.TargetEvent{event("coin-a", models.EventMaterialize)})
	sink.PublishTargetEvents("sess-1", []models.TargetEvent{event("coin-a", models.EventBecameCollectible)})

	if got := len(ch); got != 1 {
		t.Fatalf("buffered %d events, want 1", got)
	}
	var ev models.TargetEvent
	if err := json.Unmarshal(<-ch, &ev); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if ev.Type != models.EventBecameCollectible {
		t.Errorf("surviving event = %s, want the newest", ev.Type)
	}
}

func TestSinkPublishFlag(t *testing.T) {
	store := &memFlagStore{}
	sink := NewSink(NewHub(), store)

	flag := &models.CheatFlag{FlagID: "f1", SessionID: "sess-1", UserID: "u1",
		Reason: models.ReasonTeleportation, Severity: models.SeverityCritical}
	if err := sink.PublishFlag(flag); err != nil {
		t.Fatalf("publish flag: %v", err)
	}
	if len(store.flags) != 1 || store.flags[0].FlagID != "f1" {
		t.Errorf("stored flags = %+v", store.flags)
	}

	store.fail = true
	if err := sink.PublishFlag(flag); err == nil {
		t.Error("persistence failure was swallowed")
	}
}

func TestHubSubscriberIsolation(t *testing.T) {
	hub := NewHub()

	a := hub.Subscribe("sess-a", 4)
	b := hub.Subscribe("sess-b", 4)
	defer hub.Unsubscribe("sess-a", a)
	defer hub.Unsubscribe("sess-b", b)

	hub.Publish("sess-a", event("coin-a", models.EventMaterialize))

	if len(a) != 1 {
		t.Errorf("session a got %d events, want 1", len(a))
	}
	if len(b) != 0 {
		t.Errorf("session b got %d events, want 0", len(b))
	}
}
