package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/social-comb/app/pipeline"
	"github.com/lysyi3m/social-comb/app/post"
	"github.com/lysyi3m/social-comb/app/tasks"
)

type mockPostRepo struct {
	posts        []post.Post
	counts       map[post.Platform]int
	pingErr      error
	countErr     error
	listErr      error
	lastPlatform post.Platform
	lastLimit    int
}

func (m *mockPostRepo) InsertPost(ctx context.Context, p post.Post) (bool, error) {
	return true, nil
}

func (m *mockPostRepo) CountByPlatform(ctx context.Context) (map[post.Platform]int, error) {
	return m.counts, m.countErr
}

func (m *mockPostRepo) ListRecent(ctx context.Context, platform post.Platform, limit int) ([]post.Post, error) {
	m.lastPlatform = platform
	m.lastLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.posts, nil
}

func (m *mockPostRepo) Ping(ctx context.Context) error {
	return m.pingErr
}

type mockScheduler struct {
	active     bool
	triggerErr error
	triggered  int
}

func (m *mockScheduler) Start() {}
func (m *mockScheduler) Stop()  {}

func (m *mockScheduler) TriggerRun() (string, error) {
	if m.triggerErr != nil {
		return "", m.triggerErr
	}
	m.triggered++
	return "run-123", nil
}

func (m *mockScheduler) IsRunActive() bool {
	return m.active
}

type mockHealth struct{}

func (mockHealth) Health(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{"status": "healthy", "type": "redis"}
}

const testKey = "secret-key"

func setupTestServer(repo *mockPostRepo, scheduler *mockScheduler, history RunHistory) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(repo, scheduler, history, nil)
	r := gin.New()
	setupRoutes(r, handler, testKey)
	return r
}

func perform(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func TestGetHealth(t *testing.T) {
	r := setupTestServer(&mockPostRepo{}, &mockScheduler{active: true}, nil)

	w := perform(r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	body := decode(t, w)
	if body["status"] != "healthy" || body["database"] != "ok" {
		t.Errorf("Unexpected health body: %v", body)
	}
	if body["run_active"] != true {
		t.Error("Expected run_active to be reported")
	}
	if _, ok := body["cache"]; ok {
		t.Error("Expected no cache section without Redis")
	}
}

func TestGetHealthWithCache(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(&mockPostRepo{}, &mockScheduler{}, nil, mockHealth{})
	r := gin.New()
	setupRoutes(r, handler, "")

	body := decode(t, perform(r, http.MethodGet, "/health", nil))
	cache, ok := body["cache"].(map[string]interface{})
	if !ok || cache["type"] != "redis" {
		t.Errorf("Expected cache health section, got %v", body["cache"])
	}
}

func TestGetHealthDatabaseDown(t *testing.T) {
	r := setupTestServer(&mockPostRepo{pingErr: errors.New("connection refused")}, &mockScheduler{}, nil)

	w := perform(r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", w.Code)
	}
	if body := decode(t, w); body["status"] != "unhealthy" {
		t.Errorf("Expected unhealthy status, got %v", body["status"])
	}
}

func TestGetStats(t *testing.T) {
	repo := &mockPostRepo{counts: map[post.Platform]int{post.PlatformX: 7, post.PlatformYouTube: 3}}
	history := &tasks.MemoryRecorder{}
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	history.RecordRun(context.Background(), pipeline.RunReport{
		RunID:       "run-1",
		StartedAt:   start,
		FinishedAt:  start.Add(2 * time.Second),
		Fetched:     map[post.Platform]int{post.PlatformX: 10},
		StoreResult: pipeline.StoreResult{Attempted: 10, Inserted: 7},
	})

	r := setupTestServer(repo, &mockScheduler{}, history)

	w := perform(r, http.MethodGet, "/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	body := decode(t, w)
	posts := body["posts"].(map[string]interface{})
	if posts["total"] != float64(10) {
		t.Errorf("Expected 10 total posts, got %v", posts["total"])
	}
	byPlatform := posts["by_platform"].(map[string]interface{})
	if byPlatform["X"] != float64(7) || byPlatform["YouTube"] != float64(3) {
		t.Errorf("Unexpected per-platform counts: %v", byPlatform)
	}

	lastRun, ok := body["last_run"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected last_run section, got %v", body)
	}
	if lastRun["run_id"] != "run-1" || lastRun["attempted"] != float64(10) || lastRun["duration"] != "2s" {
		t.Errorf("Unexpected last run: %v", lastRun)
	}
}

func TestGetStatsWithoutRuns(t *testing.T) {
	r := setupTestServer(&mockPostRepo{counts: map[post.Platform]int{}}, &mockScheduler{}, &tasks.MemoryRecorder{})

	body := decode(t, perform(r, http.MethodGet, "/stats", nil))
	if _, ok := body["last_run"]; ok {
		t.Error("Expected no last_run before the first run")
	}
}

func TestGetStatsDatabaseError(t *testing.T) {
	r := setupTestServer(&mockPostRepo{countErr: errors.New("boom")}, &mockScheduler{}, nil)

	if w := perform(r, http.MethodGet, "/stats", nil); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"x-api-key header", map[string]string{"X-API-Key": testKey}, http.StatusOK},
		{"bearer token", map[string]string{"Authorization": "Bearer " + testKey}, http.StatusOK},
		{"basic auth ignored", map[string]string{"Authorization": "Basic " + testKey}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupTestServer(&mockPostRepo{}, &mockScheduler{}, nil)
			w := perform(r, http.MethodGet, "/api/posts", tt.headers)
			if w.Code != tt.wantStatus {
				t.Errorf("Expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	setupRoutes(r, NewHandler(&mockPostRepo{}, &mockScheduler{}, nil, nil), "")

	if w := perform(r, http.MethodGet, "/api/posts", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for disabled API, got %d", w.Code)
	}
	if w := perform(r, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Errorf("Expected health to stay available, got %d", w.Code)
	}
}

func TestAPIListPosts(t *testing.T) {
	repo := &mockPostRepo{posts: []post.Post{
		{Platform: post.PlatformX, PlatformPostID: "1", Content: "hello", LikesCount: 3},
		{Platform: post.PlatformYouTube, PlatformPostID: "abc", Content: "video"},
	}}
	r := setupTestServer(repo, &mockScheduler{}, nil)
	auth := map[string]string{"X-API-Key": testKey}

	w := perform(r, http.MethodGet, "/api/posts", auth)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	if body["total"] != float64(2) {
		t.Errorf("Expected 2 posts, got %v", body["total"])
	}
	first := body["posts"].([]interface{})[0].(map[string]interface{})
	if first["platform"] != "X" || first["platform_post_id"] != "1" || first["likes_count"] != float64(3) {
		t.Errorf("Unexpected post: %v", first)
	}
	if repo.lastPlatform != "" || repo.lastLimit != defaultListLimit {
		t.Errorf("Expected default query, got platform %q limit %d", repo.lastPlatform, repo.lastLimit)
	}

	perform(r, http.MethodGet, "/api/posts?platform=YouTube&limit=5000", auth)
	if repo.lastPlatform != post.PlatformYouTube || repo.lastLimit != maxListLimit {
		t.Errorf("Expected YouTube capped at %d, got %q %d", maxListLimit, repo.lastPlatform, repo.lastLimit)
	}
}

func TestAPIListPostsBadRequest(t *testing.T) {
	r := setupTestServer(&mockPostRepo{}, &mockScheduler{}, nil)
	auth := map[string]string{"X-API-Key": testKey}

	for _, path := range []string{"/api/posts?platform=Facebook", "/api/posts?limit=0", "/api/posts?limit=ten"} {
		if w := perform(r, http.MethodGet, path, auth); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestAPIListPostsDatabaseError(t *testing.T) {
	r := setupTestServer(&mockPostRepo{listErr: errors.New("boom")}, &mockScheduler{}, nil)

	w := perform(r, http.MethodGet, "/api/posts", map[string]string{"X-API-Key": testKey})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
}

func TestAPITriggerRun(t *testing.T) {
	scheduler := &mockScheduler{}
	r := setupTestServer(&mockPostRepo{}, scheduler, nil)

	w := perform(r, http.MethodPost, "/api/runs", map[string]string{"X-API-Key": testKey})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}
	if body := decode(t, w); body["run_id"] != "run-123" {
		t.Errorf("Expected run id, got %v", body["run_id"])
	}
	if scheduler.triggered != 1 {
		t.Errorf("Expected 1 trigger, got %d", scheduler.triggered)
	}
}

func TestAPITriggerRunConflict(t *testing.T) {
	scheduler := &mockScheduler{triggerErr: tasks.ErrRunInProgress}
	r := setupTestServer(&mockPostRepo{}, scheduler, nil)

	w := perform(r, http.MethodPost, "/api/runs", map[string]string{"X-API-Key": testKey})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", w.Code)
	}
}

func TestAPITriggerRunFailure(t *testing.T) {
	scheduler := &mockScheduler{triggerErr: errors.New("task queue is full")}
	r := setupTestServer(&mockPostRepo{}, scheduler, nil)

	w := perform(r, http.MethodPost, "/api/runs", map[string]string{"X-API-Key": testKey})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
}
