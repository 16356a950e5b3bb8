package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/aryan-mod/suraksha-setu/internal/cache"
	"github.com/aryan-mod/suraksha-setu/internal/database/testutil"
	"github.com/aryan-mod/suraksha-setu/internal/push"
	"github.com/aryan-mod/suraksha-setu/internal/query"
	"github.com/aryan-mod/suraksha-setu/internal/realtime"
	"github.com/aryan-mod/suraksha-setu/internal/replay"
	"github.com/aryan-mod/suraksha-setu/internal/services"
	"github.com/aryan-mod/suraksha-setu/internal/worker"
)

type handlerFixture struct {
	router *gin.Engine
	worker *worker.Worker
	subs   *services.SubscriptionService
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	hub := realtime.NewHub()
	notifications := services.NewNotificationService(db, hub)
	locations := services.NewLocationService(db, query.NewWrapper())
	subscriptions := services.NewSubscriptionService(db)

	queue, err := replay.NewQueue(db)
	require.NoError(t, err)

	dispatcher, err := push.NewDispatcher(subscriptions, push.TransportFunc(
		func(ctx context.Context, handle string, payload []byte) error { return nil },
	))
	require.NoError(t, err)

	engine := cache.NewEngine(
		cache.NewMemoryStore(cache.DefaultNamespaces()),
		SafeZonesOrigin(locations),
		cache.DefaultNamespaces(),
	)

	w, err := worker.New(worker.Config{Engine: engine, Queue: queue, Dispatcher: dispatcher})
	require.NoError(t, err)
	w.Start()
	t.Cleanup(w.Stop)

	r := gin.New()
	nh := NewNotificationHandler(notifications, w, hub)
	lh := NewLocationHandler(locations, w)
	sh := NewSubscriptionHandler(subscriptions)
	yh := NewSyncHandler(w)

	r.POST("/api/notifications", nh.Create)
	r.GET("/api/notifications", nh.List)
	r.POST("/api/notifications/:id/ack", nh.Acknowledge)
	r.POST("/api/locations", lh.Report)
	r.GET("/api/safe-zones", lh.SafeZones)
	r.POST("/api/subscriptions", sh.Register)
	r.GET("/api/subscriptions", sh.List)
	r.DELETE("/api/subscriptions/:id", sh.Remove)
	r.POST("/api/sync", yh.Trigger)
	r.GET("/health", NewHealthHandler(db).Check)

	return &handlerFixture{router: r, worker: w, subs: subscriptions}
}

func (fx *handlerFixture) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestNotificationEndpoints(t *testing.T) {
	fx := newHandlerFixture(t)

	w := fx.do(t, http.MethodPost, "/api/notifications", "user-1", gin.H{
		"title":   "Heavy rainfall warning",
		"message": "Avoid low-lying areas",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	require.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	notification := data["notification"].(map[string]any)
	require.Equal(t, "system", notification["type"])
	require.Equal(t, "medium", notification["priority"])
	id := notification["id"].(string)
	require.NotEmpty(t, id)

	w = fx.do(t, http.MethodGet, "/api/notifications", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	require.Len(t, body["data"], 1)
	require.EqualValues(t, 1, body["meta"].(map[string]any)["total"])

	w = fx.do(t, http.MethodPost, "/api/notifications/"+id+"/ack", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = fx.do(t, http.MethodGet, "/api/notifications", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeBody(t, w)["data"], 0)

	w = fx.do(t, http.MethodPost, "/api/notifications/"+id+"/ack", "user-1", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotificationExpiresAtField(t *testing.T) {
	fx := newHandlerFixture(t)

	w := fx.do(t, http.MethodPost, "/api/notifications", "user-1", gin.H{
		"title":      "Already over",
		"expires_at": time.Now().Add(-time.Minute).UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Expired on arrival, so it never surfaces in the list.
	w = fx.do(t, http.MethodGet, "/api/notifications", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decodeBody(t, w)["data"])
}

func TestNotificationValidation(t *testing.T) {
	fx := newHandlerFixture(t)

	// Missing title.
	w := fx.do(t, http.MethodPost, "/api/notifications", "user-1", gin.H{"message": "no title"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown priority.
	w = fx.do(t, http.MethodPost, "/api/notifications", "user-1", gin.H{
		"title":    "bad",
		"priority": "shouty",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// No user identity anywhere.
	w = fx.do(t, http.MethodPost, "/api/notifications", "", gin.H{"title": "orphan"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLocationEndpoints(t *testing.T) {
	fx := newHandlerFixture(t)

	w := fx.do(t, http.MethodPost, "/api/locations", "user-1", gin.H{
		"latitude":  28.6315,
		"longitude": 77.2167,
		"accuracy":  8.0,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	data := decodeBody(t, w)["data"].(map[string]any)
	require.Equal(t, "live", data["source"])
	zones := data["safe_zones"].([]any)
	require.Len(t, zones, 1)

	// Missing coordinates fail validation.
	w = fx.do(t, http.MethodPost, "/api/locations", "user-1", gin.H{"latitude": 28.6})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSafeZonesServedFromCache(t *testing.T) {
	fx := newHandlerFixture(t)

	w := fx.do(t, http.MethodGet, "/api/safe-zones", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	require.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	require.Equal(t, "live", data["source"])
	require.Len(t, data["zones"], 3)

	// Second read comes from the cache tier and carries the same body.
	again := fx.do(t, http.MethodGet, "/api/safe-zones", "", nil)
	require.Equal(t, http.StatusOK, again.Code)
	require.JSONEq(t, w.Body.String(), again.Body.String())
}

func TestSubscriptionEndpoints(t *testing.T) {
	fx := newHandlerFixture(t)

	w := fx.do(t, http.MethodPost, "/api/subscriptions", "user-1", gin.H{
		"handle": "https://push.example.com/send/device-a",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	sub := decodeBody(t, w)["data"].(map[string]any)
	id := sub["id"].(string)
	require.NotEmpty(t, id)

	w = fx.do(t, http.MethodGet, "/api/subscriptions", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeBody(t, w)["data"], 1)

	w = fx.do(t, http.MethodDelete, "/api/subscriptions/"+id, "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = fx.do(t, http.MethodDelete, "/api/subscriptions/"+id, "user-1", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSyncEndpoint(t *testing.T) {
	fx := newHandlerFixture(t)

	w := fx.do(t, http.MethodPost, "/api/sync", "", gin.H{"tag": "background-sync-notifications"})
	require.Equal(t, http.StatusOK, w.Code)
	drain := decodeBody(t, w)["data"].(map[string]any)["drain"].(map[string]any)
	require.EqualValues(t, 0, drain["succeeded"])

	w = fx.do(t, http.MethodPost, "/api/sync", "", gin.H{"tag": "background-sync-uploads"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = fx.do(t, http.MethodPost, "/api/sync", "", gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	fx := newHandlerFixture(t)

	w := fx.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	require.Equal(t, "ok", data["status"])
	require.Equal(t, "connected", data["database"].(map[string]any)["mode"])
}
