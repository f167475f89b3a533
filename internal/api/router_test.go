package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coinhunt/coinhunt-backend-go/internal/anticheat"
	"github.com/coinhunt/coinhunt-backend-go/internal/auth"
	"github.com/coinhunt/coinhunt-backend-go/internal/config"
	"github.com/coinhunt/coinhunt-backend-go/internal/database"
	"github.com/coinhunt/coinhunt-backend-go/internal/events"
	"github.com/coinhunt/coinhunt-backend-go/internal/handler"
	"github.com/coinhunt/coinhunt-backend-go/internal/ingest"
	"github.com/coinhunt/coinhunt-backend-go/internal/models"
	"github.com/coinhunt/coinhunt-backend-go/internal/repository"
	"github.com/coinhunt/coinhunt-backend-go/internal/service"
	"github.com/coinhunt/coinhunt-backend-go/internal/session"
)

type testServer struct {
	router  *gin.Engine
	targets *repository.TargetRepository
	flags   *repository.CheatFlagRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.NewMigrationManager(db).RunMigrations(); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	locationRepo := repository.NewLocationRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	targetRepo := repository.NewTargetRepository(db)
	flagRepo := repository.NewCheatFlagRepository(db)

	sink := events.NewSink(events.NewHub(), flagRepo)
	manager := session.NewManager(context.Background(), session.Config{
		Ingest:      ingest.DefaultOptions,
		Thresholds:  anticheat.DefaultThresholds,
		GracePeriod: time.Minute,
	}, sink)
	t.Cleanup(func() { manager.Shutdown() })

	tokens := auth.NewTokenIssuer("test-secret", "coinhunt-test", time.Hour)

	cfg := &config.Config{RateLimitRequests: 10000, RateLimitWindow: time.Minute}
	router := SetupRouter(cfg, tokens, Handlers{
		Location: handler.NewLocationHandler(service.NewLocationService(manager, locationRepo, sessionRepo)),
		Hunt:     handler.NewHuntHandler(service.NewHuntService(manager, sessionRepo, targetRepo, tokens)),
		Flags:    handler.NewCheatFlagHandler(service.NewCheatFlagService(flagRepo)),
		Stream:   handler.NewStreamHandler(tokens, sink, 64),
	})
	return &testServer{router: router, targets: targetRepo, flags: flagRepo}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, env
}

func (ts *testServer) startHunt(t *testing.T, userID, deviceID string) models.HuntStartResponse {
	t.Helper()
	code, env := ts.do(t, http.MethodPost, "/api/v1/hunt/start", "", models.HuntStartRequest{
		UserID: userID, DeviceID: deviceID,
	})
	if code != http.StatusOK {
		t.Fatalf("hunt start = %d (%s)", code, env.Message)
	}
	var resp models.HuntStartResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decoding hunt start: %v", err)
	}
	return resp
}

func (ts *testServer) seedTarget(t *testing.T, id string, lat, lon float64) {
	t.Helper()
	err := ts.targets.CreateTarget(&models.Target{
		ID: id, Name: "Test Coin", Latitude: lat, Longitude: lon,
		ValueCategory:               models.ValueCategoryGold,
		CollectionRadiusMeters:      5,
		MaterializationRadiusMeters: 20,
		HideRadiusMeters:            30,
	})
	if err != nil {
		t.Fatalf("seeding target: %v", err)
	}
}

func locationBody(userID string, lat, lon float64, at time.Time) models.LocationUpdateRequest {
	return models.LocationUpdateRequest{
		UserID:          userID,
		Latitude:        &lat,
		Longitude:       &lon,
		AccuracyMeters:  10,
		ClientTimestamp: at.UnixMilli(),
	}
}

func TestHuntCollectFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.seedTarget(t, "coin-test", 37.7749, -122.4194)

	hunt := ts.startHunt(t, "u1", "dev1")
	if hunt.Token == "" || hunt.SessionID == "" {
		t.Fatalf("incomplete hunt start response: %+v", hunt)
	}

	code, env := ts.do(t, http.MethodPost, "/api/v1/hunt/targets/coin-test/activate", hunt.Token, nil)
	if code != http.StatusOK {
		t.Fatalf("activate = %d (%s)", code, env.Message)
	}

	// A fix on top of the target makes it collectible immediately.
	code, env = ts.do(t, http.MethodPost, "/api/v1/location", hunt.Token,
		locationBody("u1", 37.7749, -122.4194, time.Now()))
	if code != http.StatusOK {
		t.Fatalf("location update = %d (%s)", code, env.Message)
	}
	var update models.LocationUpdateResponse
	if err := json.Unmarshal(env.Data, &update); err != nil {
		t.Fatalf("decoding update: %v", err)
	}
	if !update.Success || update.MovementType != models.MovementWalking {
		t.Errorf("update = %+v", update)
	}

	code, env = ts.do(t, http.MethodGet, "/api/v1/hunt/state", hunt.Token, nil)
	if code != http.StatusOK {
		t.Fatalf("state = %d (%s)", code, env.Message)
	}
	var state struct {
		Targets []models.TargetSnapshot `json:"targets"`
	}
	if err := json.Unmarshal(env.Data, &state); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	if len(state.Targets) != 1 || state.Targets[0].State != models.StateCollectible {
		t.Fatalf("state targets = %+v", state.Targets)
	}

	code, env = ts.do(t, http.MethodPost, "/api/v1/hunt/collect", hunt.Token,
		models.CollectRequest{TargetID: "coin-test"})
	if code != http.StatusOK {
		t.Fatalf("collect = %d (%s)", code, env.Message)
	}
	var collected models.TargetEvent
	if err := json.Unmarshal(env.Data, &collected); err != nil {
		t.Fatalf("decoding collect event: %v", err)
	}
	if collected.Type != models.EventCollected || collected.TargetID != "coin-test" {
		t.Errorf("collect event = %+v", collected)
	}

	// Collected is terminal.
	code, _ = ts.do(t, http.MethodPost, "/api/v1/hunt/collect", hunt.Token,
		models.CollectRequest{TargetID: "coin-test"})
	if code != http.StatusConflict {
		t.Errorf("second collect = %d, want 409", code)
	}
}

func TestCollectWithoutLocation(t *testing.T) {
	ts := newTestServer(t)
	ts.seedTarget(t, "coin-test", 37.7749, -122.4194)
	hunt := ts.startHunt(t, "u1", "dev1")

	if code, _ := ts.do(t, http.MethodPost, "/api/v1/hunt/targets/coin-test/activate", hunt.Token, nil); code != http.StatusOK {
		t.Fatalf("activate = %d", code)
	}
	code, _ := ts.do(t, http.MethodPost, "/api/v1/hunt/collect", hunt.Token,
		models.CollectRequest{TargetID: "coin-test"})
	if code != http.StatusConflict {
		t.Errorf("collect without location = %d, want 409", code)
	}
}

func TestLocationRejections(t *testing.T) {
	ts := newTestServer(t)
	hunt := ts.startHunt(t, "u1", "dev1")
	now := time.Now()

	// Null island.
	code, _ := ts.do(t, http.MethodPost, "/api/v1/location", hunt.Token,
		locationBody("u1", 0, 0, now))
	if code != http.StatusBadRequest {
		t.Errorf("null island = %d, want 400", code)
	}

	if code, _ := ts.do(t, http.MethodPost, "/api/v1/location", hunt.Token,
		locationBody("u1", 37.7749, -122.4194, now)); code != http.StatusOK {
		t.Fatalf("first fix = %d", code)
	}
	// Same timestamp again is stale.
	code, _ = ts.do(t, http.MethodPost, "/api/v1/location", hunt.Token,
		locationBody("u1", 37.7750, -122.4194, now))
	if code != http.StatusBadRequest {
		t.Errorf("stale fix = %d, want 400", code)
	}

	// Missing coordinates fail binding.
	code, _ = ts.do(t, http.MethodPost, "/api/v1/location", hunt.Token,
		map[string]interface{}{"userId": "u1"})
	if code != http.StatusBadRequest {
		t.Errorf("missing coordinates = %d, want 400", code)
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	code, _ := ts.do(t, http.MethodPost, "/api/v1/location", "",
		locationBody("u1", 37.7749, -122.4194, time.Now()))
	if code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", code)
	}

	code, _ = ts.do(t, http.MethodPost, "/api/v1/location", "not-a-token",
		locationBody("u1", 37.7749, -122.4194, time.Now()))
	if code != http.StatusUnauthorized {
		t.Errorf("garbage token = %d, want 401", code)
	}

	code, _ = ts.do(t, http.MethodPost, "/api/v1/hunt/start", "",
		map[string]interface{}{"userId": "u1"})
	if code != http.StatusBadRequest {
		t.Errorf("hunt start without device = %d, want 400", code)
	}
}

func TestTeleportProducesFlag(t *testing.T) {
	ts := newTestServer(t)
	hunt := ts.startHunt(t, "u1", "dev1")
	now := time.Now()

	if code, _ := ts.do(t, http.MethodPost, "/api/v1/location", hunt.Token,
		locationBody("u1", 37.7749, -122.4194, now)); code != http.StatusOK {
		t.Fatal("first fix rejected")
	}
	// ~1.5km north in 5 seconds, far beyond the teleport threshold.
	code, env := ts.do(t, http.MethodPost, "/api/v1/location", hunt.Token,
		locationBody("u1", 37.7884, -122.4194, now.Add(5*time.Second)))
	if code != http.StatusOK {
		t.Fatalf("teleport fix = %d (%s)", code, env.Message)
	}

	code, env = ts.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/flags?sessionId=%s", hunt.SessionID), "", nil)
	if code != http.StatusOK {
		t.Fatalf("flags = %d (%s)", code, env.Message)
	}
	var flags models.CheatFlagsResponse
	if err := json.Unmarshal(env.Data, &flags); err != nil {
		t.Fatalf("decoding flags: %v", err)
	}
	if flags.Total != 1 {
		t.Fatalf("flag total = %d, want 1", flags.Total)
	}
	flag := flags.Data[0]
	if flag.Reason != models.ReasonTeleportation || flag.Severity != models.SeverityCritical {
		t.Errorf("flag = %s/%s", flag.Reason, flag.Severity)
	}
	if flag.UserID != "u1" || flag.SessionID != hunt.SessionID {
		t.Errorf("flag identity = %s/%s", flag.UserID, flag.SessionID)
	}

	// Resolve it through the moderation surface.
	code, _ = ts.do(t, http.MethodPost, "/api/v1/flags/"+flag.FlagID+"/resolve", "",
		map[string]string{"resolution": models.ResolutionConfirmed})
	if code != http.StatusOK {
		t.Errorf("resolve = %d", code)
	}
	code, _ = ts.do(t, http.MethodPost, "/api/v1/flags/unknown/resolve", "",
		map[string]string{"resolution": models.ResolutionConfirmed})
	if code != http.StatusNotFound {
		t.Errorf("resolve unknown = %d, want 404", code)
	}
	code, _ = ts.do(t, http.MethodPost, "/api/v1/flags/"+flag.FlagID+"/resolve", "",
		map[string]string{"resolution": "MAYBE"})
	if code != http.StatusBadRequest {
		t.Errorf("bad resolution = %d, want 400", code)
	}
}

func TestOfflineEndsSession(t *testing.T) {
	ts := newTestServer(t)
	hunt := ts.startHunt(t, "u1", "dev1")

	if code, _ := ts.do(t, http.MethodPost, "/api/v1/location", hunt.Token,
		locationBody("u1", 37.7749, -122.4194, time.Now())); code != http.StatusOK {
		t.Fatal("fix rejected")
	}
	code, env := ts.do(t, http.MethodPost, "/api/v1/location/offline", hunt.Token, nil)
	if code != http.StatusOK {
		t.Fatalf("offline = %d (%s)", code, env.Message)
	}
	// Going offline twice is harmless.
	if code, _ := ts.do(t, http.MethodPost, "/api/v1/location/offline", hunt.Token, nil); code != http.StatusOK {
		t.Errorf("second offline = %d, want 200", code)
	}

	code, _ = ts.do(t, http.MethodPost, "/api/v1/location", hunt.Token,
		locationBody("u1", 37.7749, -122.4194, time.Now()))
	if code != http.StatusNotFound {
		t.Errorf("fix after offline = %d, want 404", code)
	}
}

func TestActivateUnknownTarget(t *testing.T) {
	ts := newTestServer(t)
	hunt := ts.startHunt(t, "u1", "dev1")

	code, _ := ts.do(t, http.MethodPost, "/api/v1/hunt/targets/nope/activate", hunt.Token, nil)
	if code != http.StatusNotFound {
		t.Errorf("activate unknown = %d, want 404", code)
	}
}

func TestHealthAndTargets(t *testing.T) {
	ts := newTestServer(t)
	ts.seedTarget(t, "coin-test", 37.7749, -122.4194)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health = %d", rec.Code)
	}

	code, env := ts.do(t, http.MethodGet, "/api/v1/targets", "", nil)
	if code != http.StatusOK {
		t.Fatalf("targets = %d (%s)", code, env.Message)
	}
	var targets struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(env.Data, &targets); err != nil {
		t.Fatalf("decoding targets: %v", err)
	}
	if targets.Count < 1 {
		t.Errorf("target count = %d, want at least the seeded one", targets.Count)
	}
}
