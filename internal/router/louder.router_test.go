package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SukhvirKooner/Louder/internal/config"
	"github.com/SukhvirKooner/Louder/internal/domain"
	hrest "github.com/SukhvirKooner/Louder/internal/handler/rest"
	"github.com/SukhvirKooner/Louder/internal/metrics"
	"github.com/SukhvirKooner/Louder/internal/repository/memstore"
	"github.com/SukhvirKooner/Louder/internal/scraper"
	"github.com/SukhvirKooner/Louder/internal/service"
	"github.com/SukhvirKooner/Louder/shared/middleware"
	"github.com/SukhvirKooner/Louder/shared/response"
	"github.com/SukhvirKooner/Louder/shared/utils/id"
)

var now = time.Date(2025, time.June, 4, 10, 0, 0, 0, time.UTC)

type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
}

var codeRe = regexp.MustCompile(`<strong>(\d+)</strong>`)

func (c *captureSender) Send(_ context.Context, to, _, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m := codeRe.FindStringSubmatch(body); m != nil {
		c.codes[to] = m[1]
	}
	return nil
}

func (c *captureSender) code(email string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[email]
}

type staticScraper struct{ events []domain.Event }

func (s staticScraper) FetchAll(context.Context, []config.SourceConfig) []scraper.SourceResult {
	evs := make([]domain.Event, len(s.events))
	copy(evs, s.events)
	return []scraper.SourceResult{{Source: "fixture", Pages: 1, Events: evs, Stop: scraper.StopEndOfResults}}
}

type testServer struct {
	srv    *httptest.Server
	sender *captureSender
	clock  *time.Time
	mu     *sync.Mutex
}

func newTestServer(t *testing.T, adminToken string, rdb redis.UniversalClient) *testServer {
	t.Helper()
	logger := zap.NewNop()
	store := memstore.NewStore()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	var mu sync.Mutex
	current := now
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}

	start := now.Add(24 * time.Hour)
	sc := staticScraper{events: []domain.Event{
		{SourceOrigin: "https://a.example/", SourceID: "1", Title: "Gig", TicketURL: "https://a.example/e/1", StartTime: &start},
	}}
	sender := &captureSender{codes: map[string]string{}}
	sf, err := id.NewSnowflake(2)
	require.NoError(t, err)

	eventSvc := service.NewEventService(store.Events, sc, []config.SourceConfig{{Name: "fixture"}}, clock, logger, m)
	otpSvc := service.NewOTPService(store.OTPs, store.Verifications, nil, sender, sf,
		service.OTPOptions{TTL: 300 * time.Second, Length: 6, Now: clock}, logger, m)
	subSvc := service.NewSubscriptionService(store.Verifications, store.Submissions, store.Events, clock, logger, m)

	r := SetupRoutes(chi.NewRouter(), Handlers{
		Events:        hrest.NewEventHandler(eventSvc, logger),
		OTP:           hrest.NewOTPHandler(otpSvc, logger),
		Subscriptions: hrest.NewSubscriptionHandler(subSvc, logger),
		Admin:         hrest.NewAdminHandler(eventSvc, store.Ping, logger),
	}, Options{
		CORSOrigins: []string{"http://localhost:3000"},
		AdminToken:  adminToken,
		Redis:       rdb,
		Gatherer:    reg,
		Logger:      logger,
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, sender: sender, clock: &current, mu: &mu}
}

func (s *testServer) advance(d time.Duration) {
	s.mu.Lock()
	*s.clock = s.clock.Add(d)
	s.mu.Unlock()
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, header ...string) (int, response.APIResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out response.APIResponse
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestSubscriptionFlow(t *testing.T) {
	s := newTestServer(t, "", nil)
	email := "visitor@example.com"

	status, _ := s.do(t, http.MethodPost, "/api/v1/subscriptions", map[string]string{"email": email})
	assert.Equal(t, http.StatusForbidden, status)

	status, body := s.do(t, http.MethodPost, "/api/v1/otp/verify", map[string]string{"email": email, "code": "123456"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "otp not found", body.Message)

	status, _ = s.do(t, http.MethodPost, "/api/v1/otp/request", map[string]string{"email": email})
	require.Equal(t, http.StatusAccepted, status)
	code := s.sender.code(email)
	require.Len(t, code, 6)

	wrong := "000000"
	if code == wrong {
		wrong = "999999"
	}
	status, body = s.do(t, http.MethodPost, "/api/v1/otp/verify", map[string]string{"email": email, "code": wrong})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid otp", body.Message)

	status, _ = s.do(t, http.MethodPost, "/api/v1/otp/verify", map[string]string{"email": email, "code": code})
	require.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodPost, "/api/v1/subscriptions", map[string]string{"email": email})
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "subscribed", body.Message)

	status, body = s.do(t, http.MethodPost, "/api/v1/subscriptions", map[string]string{"email": email})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "already subscribed", body.Message)
}

func TestExpiredOTPIsGone(t *testing.T) {
	s := newTestServer(t, "", nil)
	email := "late@example.com"

	status, _ := s.do(t, http.MethodPost, "/api/v1/otp/request", map[string]string{"email": email})
	require.Equal(t, http.StatusAccepted, status)
	s.advance(301 * time.Second)

	status, body := s.do(t, http.MethodPost, "/api/v1/otp/verify", map[string]string{"email": email, "code": s.sender.code(email)})
	assert.Equal(t, http.StatusGone, status)
	assert.Equal(t, "otp expired", body.Message)
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t, "", nil)

	status, _ := s.do(t, http.MethodPost, "/api/v1/otp/request", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, status)

	req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/api/v1/otp/request", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	status, _ = s.do(t, http.MethodGet, "/api/v1/events?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/events/lookup?source=x", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestIngestThenBrowseEvents(t *testing.T) {
	s := newTestServer(t, "secret", nil)

	status, _ := s.do(t, http.MethodPost, "/api/v1/admin/ingest", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := s.do(t, http.MethodPost, "/api/v1/admin/ingest", nil, middleware.HeaderAdminToken, "secret")
	require.Equal(t, http.StatusOK, status)
	report := body.Data.(map[string]interface{})
	assert.EqualValues(t, 1, report["upserted"])

	status, body = s.do(t, http.MethodGet, "/api/v1/events?limit=10", nil)
	require.Equal(t, http.StatusOK, status)
	list := body.Data.([]interface{})
	require.Len(t, list, 1)
	ev := list[0].(map[string]interface{})
	assert.Equal(t, "Gig", ev["title"])
	eventID := ev["id"].(string)

	status, body = s.do(t, http.MethodGet, "/api/v1/events/"+eventID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://a.example/e/1", body.Data.(map[string]interface{})["ticket_url"])

	status, _ = s.do(t, http.MethodGet, "/api/v1/events/lookup?source=https://a.example/&source_id=1", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/events/evt_missing", nil)
	assert.Equal(t, http.StatusNotFound, status)

	// subscription carries the clicked event's ticket link
	email := "fan@example.com"
	s.do(t, http.MethodPost, "/api/v1/otp/request", map[string]string{"email": email})
	s.do(t, http.MethodPost, "/api/v1/otp/verify", map[string]string{"email": email, "code": s.sender.code(email)})
	status, body = s.do(t, http.MethodPost, "/api/v1/subscriptions", map[string]string{"email": email, "event_id": eventID})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "https://a.example/e/1", body.Data.(map[string]interface{})["ticket_url"])

	s.advance(48 * time.Hour)
	status, body = s.do(t, http.MethodPost, "/api/v1/admin/purge", nil, middleware.HeaderAdminToken, "secret")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body.Data.(map[string]interface{})["deleted"])
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, "", nil)

	status, _ := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, status)

	s.do(t, http.MethodPost, "/api/v1/otp/request", map[string]string{"email": "m@example.com"})

	resp, err := http.Get(s.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `louder_otp_issued_total{result="sent"} 1`)
}

func TestOTPRoutesAreRateLimitedPerIP(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := newTestServer(t, "", rdb)

	var last int
	for i := 0; i < 21; i++ {
		last, _ = s.do(t, http.MethodPost, "/api/v1/otp/verify", map[string]string{"email": "x@example.com", "code": "1"})
	}
	assert.Equal(t, http.StatusTooManyRequests, last)

	status, _ := s.do(t, http.MethodGet, "/api/v1/events", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, "", nil)

	req, err := http.NewRequest(http.MethodOptions, s.srv.URL+"/api/v1/otp/request", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}
