//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"meetup-app-go/internal/config"
	"meetup-app-go/internal/db"
	gatheringdomain "meetup-app-go/internal/domain/gathering"
	popularitydomain "meetup-app-go/internal/domain/popularity"
	scheduledomain "meetup-app-go/internal/domain/schedule"
	gatheringrepo "meetup-app-go/internal/repository/postgres/gathering"
	popularityrepo "meetup-app-go/internal/repository/postgres/popularity"
	schedulerepo "meetup-app-go/internal/repository/postgres/schedule"
	"meetup-app-go/internal/transport/httpserver"
	"meetup-app-go/internal/transport/httpserver/handler"
	"meetup-app-go/pkg/logger"
)

type testEnv struct {
	server     *httptest.Server
	authServer *httptest.Server
	db         *gorm.DB
	popularity *popularitydomain.Service
}

func setupE2E(t *testing.T) *testEnv {
	t.Helper()

	dsn := os.Getenv("E2E_DB_DSN")
	if dsn == "" {
		t.Skip("E2E_DB_DSN not set; skipping e2e tests")
	}

	authServer := newAuthServer(t)
	log := logger.NewNop()

	cfg := config.Config{
		DB: config.DBConfig{Driver: "postgres", DSN: dsn},
		Auth: config.AuthConfig{
			ProviderURL: authServer.URL,
			APIKey:      "test-key",
			Timeout:     2 * time.Second,
		},
	}

	dbConn, err := db.New(cfg.DB, log)
	if err != nil {
		t.Fatalf("db connect: %v", err)
	}

	if err := db.Migrate(dbConn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := cleanDB(dbConn); err != nil {
		t.Fatalf("clean db: %v", err)
	}

	gatherings := gatheringdomain.NewService(gatheringrepo.NewPostgres(dbConn), nil)
	schedules := scheduledomain.NewService(schedulerepo.NewPostgres(dbConn), gatherings, nil)

	popRepo := popularityrepo.NewPostgres(dbConn)
	aggregator := popularitydomain.NewAggregator(popRepo, nil, log)
	popularity := popularitydomain.NewService(popRepo, schedules, aggregator, nil, clockwork.NewRealClock(), time.Minute, 20)

	handlers := handler.New(gatherings, schedules, popularity, log)
	router := httpserver.NewRouter(cfg, handlers, log)
	server := httptest.NewServer(router)

	return &testEnv{server: server, authServer: authServer, db: dbConn, popularity: popularity}
}

func (e *testEnv) Close() {
	e.popularity.Wait()
	e.server.Close()
	e.authServer.Close()
	sqlDB, err := e.db.DB()
	if err == nil {
		_ = sqlDB.Close()
	}
}

// newAuthServer echoes the bearer token back as the user id.
func newAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("apikey") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		auth := r.Header.Get("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if !strings.HasPrefix(auth, "Bearer ") || token == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		payload := map[string]interface{}{
			"id":    token,
			"email": token + "@example.com",
			"user_metadata": map[string]interface{}{
				"name": "User " + token,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}))
}

func cleanDB(dbConn *gorm.DB) error {
	return dbConn.WithContext(context.Background()).Exec(
		"TRUNCATE TABLE popularity_votes, popularity_daily_limits, popularity_scores, popularity_score_categories, vote_privileges, schedule_memberships, schedules, gathering_memberships, gatherings RESTART IDENTITY CASCADE",
	).Error
}

func requestJSON(t *testing.T, client *http.Client, method, url, token string, payload interface{}) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, respBody
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type gatheringResponse struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	CreatorID        string `json:"creator_id"`
	MaxMembers       int    `json:"max_members"`
	CurrentMembers   int    `json:"current_members"`
	ApprovalRequired bool   `json:"approval_required"`
	IsCompleted      bool   `json:"is_completed"`
}

type membershipResponse struct {
	GatheringID string `json:"gathering_id"`
	UserID      string `json:"user_id"`
	Status      string `json:"status"`
	Role        string `json:"role"`
}

type scheduleResponse struct {
	ID             string `json:"id"`
	GatheringID    string `json:"gathering_id"`
	CreatorID      string `json:"creator_id"`
	CurrentMembers int    `json:"current_members"`
	IsCompleted    bool   `json:"is_completed"`
}

type scoreResponse struct {
	UserID     string         `json:"user_id"`
	Total      int            `json:"total"`
	Categories map[string]int `json:"categories"`
}

func decodeBody(t *testing.T, body []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(body, target); err != nil {
		t.Fatalf("decode %s: %v", string(body), err)
	}
}

func TestE2EHealthAndAuth(t *testing.T) {
	env := setupE2E(t)
	defer env.Close()

	client := &http.Client{Timeout: 5 * time.Second}

	resp, body := requestJSON(t, client, http.MethodGet, env.server.URL+"/api/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, string(body))
	}

	resp, body = requestJSON(t, client, http.MethodGet, env.server.URL+"/api/gatherings/mine", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", resp.StatusCode, string(body))
	}
	var errResp errorEnvelope
	decodeBody(t, body, &errResp)
	if errResp.Error.Code != "invalid_token" {
		t.Fatalf("expected invalid_token, got %q", errResp.Error.Code)
	}
}

func TestE2EMembershipFlow(t *testing.T) {
	env := setupE2E(t)
	defer env.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	creator := "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaa1"
	member := "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaa2"

	resp, body := requestJSON(t, client, http.MethodPost, env.server.URL+"/api/gatherings", creator, map[string]interface{}{
		"title":             "Board games night",
		"max_members":       5,
		"approval_required": true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create gathering: expected 201, got %d: %s", resp.StatusCode, string(body))
	}
	var gathering gatheringResponse
	decodeBody(t, body, &gathering)
	if gathering.CurrentMembers != 1 {
		t.Fatalf("expected current_members=1, got %d", gathering.CurrentMembers)
	}

	base := env.server.URL + "/api/gatherings/" + gathering.ID

	resp, body = requestJSON(t, client, http.MethodPost, base+"/join", member, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("join: expected 201, got %d: %s", resp.StatusCode, string(body))
	}
	var membership membershipResponse
	decodeBody(t, body, &membership)
	if membership.Status != "pending" {
		t.Fatalf("expected pending, got %s", membership.Status)
	}

	resp, body = requestJSON(t, client, http.MethodPost, base+"/members/"+member+"/approve", creator, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("approve: expected 204, got %d: %s", resp.StatusCode, string(body))
	}

	// Second approve loses the status swap.
	resp, body = requestJSON(t, client, http.MethodPost, base+"/members/"+member+"/approve", creator, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("re-approve: expected 409, got %d: %s", resp.StatusCode, string(body))
	}

	resp, body = requestJSON(t, client, http.MethodGet, base, creator, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get gathering: expected 200, got %d: %s", resp.StatusCode, string(body))
	}
	decodeBody(t, body, &gathering)
	if gathering.CurrentMembers != 2 {
		t.Fatalf("expected current_members=2 after approve, got %d", gathering.CurrentMembers)
	}

	resp, body = requestJSON(t, client, http.MethodPost, base+"/members/"+member+"/kick", creator, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("kick: expected 204, got %d: %s", resp.StatusCode, string(body))
	}
	resp, body = requestJSON(t, client, http.MethodGet, base, creator, nil)
	decodeBody(t, body, &gathering)
	if gathering.CurrentMembers != 1 {
		t.Fatalf("expected current_members=1 after kick, got %d", gathering.CurrentMembers)
	}
}

func TestE2EScheduleAndVoteFlow(t *testing.T) {
	env := setupE2E(t)
	defer env.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	creator := "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbb1"
	member := "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbb2"

	resp, body := requestJSON(t, client, http.MethodPost, env.server.URL+"/api/gatherings", creator, map[string]interface{}{
		"title":       "Hiking club",
		"max_members": 10,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create gathering: expected 201, got %d: %s", resp.StatusCode, string(body))
	}
	var gathering gatheringResponse
	decodeBody(t, body, &gathering)

	resp, body = requestJSON(t, client, http.MethodPost, env.server.URL+"/api/gatherings/"+gathering.ID+"/join", member, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("join gathering: expected 201, got %d: %s", resp.StatusCode, string(body))
	}

	resp, body = requestJSON(t, client, http.MethodPost, env.server.URL+"/api/gatherings/"+gathering.ID+"/schedules", creator, map[string]interface{}{
		"title":       "Saturday hike",
		"starts_at":   time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"max_members": 10,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create schedule: expected 201, got %d: %s", resp.StatusCode, string(body))
	}
	var schedule scheduleResponse
	decodeBody(t, body, &schedule)

	resp, body = requestJSON(t, client, http.MethodPost, env.server.URL+"/api/schedules/"+schedule.ID+"/join", member, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("join schedule: expected 201, got %d: %s", resp.StatusCode, string(body))
	}

	// Voting against an uncompleted schedule is refused.
	resp, body = requestJSON(t, client, http.MethodPost, env.server.URL+"/api/votes", member, map[string]interface{}{
		"target_id":   creator,
		"category":    "kind",
		"active":      true,
		"schedule_id": schedule.ID,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("premature vote: expected 409, got %d: %s", resp.StatusCode, string(body))
	}

	resp, body = requestJSON(t, client, http.MethodPost, env.server.URL+"/api/schedules/"+schedule.ID+"/complete", creator, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("complete schedule: expected 204, got %d: %s", resp.StatusCode, string(body))
	}

	for _, category := range []string{"kind", "friendly"} {
		resp, body = requestJSON(t, client, http.MethodPost, env.server.URL+"/api/votes", member, map[string]interface{}{
			"target_id":   creator,
			"category":    category,
			"active":      true,
			"schedule_id": schedule.ID,
		})
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("vote %s: expected 204, got %d: %s", category, resp.StatusCode, string(body))
		}
	}

	// A second target the same day trips the daily quota.
	resp, body = requestJSON(t, client, http.MethodPost, env.server.URL+"/api/votes", member, map[string]interface{}{
		"target_id": "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbb3",
		"category":  "kind",
		"active":    true,
	})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second target: expected 429, got %d: %s", resp.StatusCode, string(body))
	}

	env.popularity.Wait()

	resp, body = requestJSON(t, client, http.MethodGet, env.server.URL+"/api/users/"+creator+"/score", member, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get score: expected 200, got %d: %s", resp.StatusCode, string(body))
	}
	var score scoreResponse
	decodeBody(t, body, &score)
	if score.Total != 2 {
		t.Fatalf("expected total=2, got %d: %s", score.Total, string(body))
	}
	if score.Categories["kind"] != 1 || score.Categories["friendly"] != 1 {
		t.Fatalf("unexpected categories: %v", score.Categories)
	}
}
