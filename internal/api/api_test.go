// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/rvguard/internal/logging"
	"github.com/tomtom215/rvguard/internal/security"
	ws "github.com/tomtom215/rvguard/internal/websocket"
)

func TestMain(m *testing.M) {
	logging.SetLevelString("error")
	os.Exit(m.Run())
}

// rawResponse mirrors APIResponse with Data left undecoded.
type rawResponse struct {
	Status   string          `json:"status"`
	Data     json.RawMessage `json:"data"`
	Metadata Metadata        `json:"metadata"`
	Error    *APIError       `json:"error"`
}

type testEnv struct {
	detector *security.Detector
	handler  http.Handler
}

func newTestEnv(t *testing.T, hub *ws.Hub, cfg *ChiMiddlewareConfig) *testEnv {
	t.Helper()
	d := security.NewDetector(security.DefaultConfig())
	h := NewHandler(d, hub, []string{"*"})
	if cfg == nil {
		cfg = DefaultChiMiddlewareConfig()
		cfg.RateLimitDisabled = true
	}
	return &testEnv{
		detector: d,
		handler:  NewRouter(h, NewChiMiddleware(cfg)).SetupChi(),
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, rawResponse) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var resp rawResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode %s %s: %v (body %s)", method, path, err, rec.Body.String())
		}
	}
	return rec, resp
}

// seedAlerts produces one rate-limit alert for 0x42 and one ACL alert for 0x43.
func (e *testEnv) seedAlerts() {
	for i := 0; i < 11; i++ {
		e.detector.AnalyzeMessage(security.Message{ArbitrationID: 0x19FEF142, Timestamp: 1000})
	}
	e.detector.AddSourceToACL(security.NewSourceACLEntry(0x43, nil, []uint32{0x1FFB0}))
	e.detector.AnalyzeMessage(security.Message{ArbitrationID: 0x19FFB043, Timestamp: 1001})
}

func TestHealth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil, nil)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var health HealthStatus
	if err := json.Unmarshal(resp.Data, &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "healthy" || health.SinkConnected {
		t.Errorf("health = %+v", health)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}

func TestSecurityStatus(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil, nil)
	env.seedAlerts()

	rec, resp := env.do(t, http.MethodGet, "/api/v1/security/status", "")
	if rec.Code != http.StatusOK || resp.Status != "success" {
		t.Fatalf("status = %d %q", rec.Code, resp.Status)
	}
	var st struct {
		Statistics security.Statistics   `json:"statistics"`
		Alerts     security.AlertSummary `json:"alerts"`
		ACL        security.ACLStatus    `json:"acl"`
		Storm      struct {
			InStorm      bool  `json:"in_storm"`
			StormSources []int `json:"storm_sources"`
		} `json:"storm"`
	}
	if err := json.Unmarshal(resp.Data, &st); err != nil {
		t.Fatal(err)
	}
	if st.Statistics.MessagesProcessed != 12 {
		t.Errorf("messages_processed = %d, want 12", st.Statistics.MessagesProcessed)
	}
	if st.Alerts.Total != 2 {
		t.Errorf("alerts total = %d, want 2", st.Alerts.Total)
	}
	if st.ACL.EntryCount != 1 {
		t.Errorf("acl entries = %d, want 1", st.ACL.EntryCount)
	}
	if st.Storm.InStorm || len(st.Storm.StormSources) != 0 {
		t.Errorf("storm = %+v, want quiet", st.Storm)
	}
}

func TestAlerts(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil, nil)
	env.seedAlerts()

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantCount int
		wantType  security.AnomalyType
	}{
		{"all newest first", "", http.StatusOK, 2, security.AnomalySourceACLViolation},
		{"limit", "?limit=1", http.StatusOK, 1, security.AnomalySourceACLViolation},
		{"by severity", "?severity=medium", http.StatusOK, 1, security.AnomalyRateLimitViolation},
		{"by type", "?anomaly_type=rate_limit_violation", http.StatusOK, 1, security.AnomalyRateLimitViolation},
		{"since excludes older", "?since=1000.5", http.StatusOK, 1, security.AnomalySourceACLViolation},
		{"no match", "?severity=critical", http.StatusOK, 0, ""},
		{"bad severity", "?severity=urgent", http.StatusBadRequest, 0, ""},
		{"bad type", "?anomaly_type=port_scan", http.StatusBadRequest, 0, ""},
		{"bad limit", "?limit=abc", http.StatusBadRequest, 0, ""},
		{"zero limit", "?limit=0", http.StatusBadRequest, 0, ""},
		{"bad since", "?since=yesterday", http.StatusBadRequest, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, resp := env.do(t, http.MethodGet, "/api/v1/security/alerts"+tt.query, "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				if resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
					t.Errorf("error = %+v, want VALIDATION_ERROR", resp.Error)
				}
				return
			}

			var alerts []security.SecurityAlert
			if err := json.Unmarshal(resp.Data, &alerts); err != nil {
				t.Fatal(err)
			}
			if len(alerts) != tt.wantCount {
				t.Fatalf("got %d alerts, want %d", len(alerts), tt.wantCount)
			}
			if resp.Metadata.Count == nil || *resp.Metadata.Count != tt.wantCount {
				t.Errorf("metadata count = %v", resp.Metadata.Count)
			}
			if tt.wantCount > 0 && alerts[0].AnomalyType != tt.wantType {
				t.Errorf("first alert type = %q, want %q", alerts[0].AnomalyType, tt.wantType)
			}
		})
	}
}

func TestAlerts_InvalidFilterDetails(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil, nil)

	tests := []struct {
		query string
		field string
	}{
		{"?severity=urgent", "severity"},
		{"?anomaly_type=port_scan", "anomaly_type"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			t.Parallel()
			rec, resp := env.do(t, http.MethodGet, "/api/v1/security/alerts"+tt.query, "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if resp.Error == nil || resp.Error.Details["field"] != tt.field || resp.Error.Details["tag"] != tt.field {
				t.Errorf("error = %+v, want field and tag %q", resp.Error, tt.field)
			}
		})
	}
}

func TestACLLifecycle(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil, nil)

	body := `{"allowed_pgns":[131000,131001],"denied_pgns":[130801],"description":"awning controller"}`
	rec, resp := env.do(t, http.MethodPut, "/api/v1/security/acl/0x42", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d (body %s)", rec.Code, rec.Body.String())
	}
	var view security.ACLEntryView
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		t.Fatal(err)
	}
	if view.Address != 0x42 || len(view.AllowedPGNs) != 2 || len(view.DeniedPGNs) != 1 {
		t.Errorf("view = %+v", view)
	}

	// Decimal address replaces the same entry.
	rec, _ = env.do(t, http.MethodPut, "/api/v1/security/acl/66", `{"whitelisted":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("replace status = %d", rec.Code)
	}

	rec, resp = env.do(t, http.MethodGet, "/api/v1/security/acl", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var acl security.ACLStatus
	if err := json.Unmarshal(resp.Data, &acl); err != nil {
		t.Fatal(err)
	}
	if acl.EntryCount != 1 || !acl.Entries[0].IsWhitelisted || len(acl.Entries[0].AllowedPGNs) != 0 {
		t.Errorf("acl = %+v", acl)
	}

	rec, _ = env.do(t, http.MethodDelete, "/api/v1/security/acl/0x42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec, resp = env.do(t, http.MethodDelete, "/api/v1/security/acl/0x42", "")
	if rec.Code != http.StatusNotFound || resp.Error == nil || resp.Error.Code != "NOT_FOUND" {
		t.Fatalf("second delete = %d %+v", rec.Code, resp.Error)
	}
}

func TestACLPut_Invalid(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil, nil)

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode string
	}{
		{"address too large", "/api/v1/security/acl/256", `{}`, "INVALID_ADDRESS"},
		{"address not a number", "/api/v1/security/acl/engine", `{}`, "INVALID_ADDRESS"},
		{"empty hex", "/api/v1/security/acl/0x", `{}`, "INVALID_ADDRESS"},
		{"malformed json", "/api/v1/security/acl/0x10", `{"allowed_pgns":`, "INVALID_REQUEST"},
		{"unknown field", "/api/v1/security/acl/0x10", `{"allow":[1]}`, "INVALID_REQUEST"},
		{"pgn out of range", "/api/v1/security/acl/0x10", `{"allowed_pgns":[262144]}`, "VALIDATION_ERROR"},
		{"duplicate pgns", "/api/v1/security/acl/0x10", `{"denied_pgns":[5,5]}`, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, resp := env.do(t, http.MethodPut, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want %s", resp.Error, tt.wantCode)
			}
		})
	}

	if got := env.detector.ACL().EntryCount; got != 0 {
		t.Errorf("entry count = %d after rejected requests, want 0", got)
	}
}

func TestACLPolicy(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil, nil)

	rec, _ := env.do(t, http.MethodPut, "/api/v1/security/acl/policy", `{"policy":"DENY"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	if got := env.detector.ACL().DefaultPolicy; got != security.PolicyDeny {
		t.Errorf("policy = %q, want deny", got)
	}

	for _, body := range []string{`{"policy":"block"}`, `{"policy":""}`, `{}`} {
		rec, resp := env.do(t, http.MethodPut, "/api/v1/security/acl/policy", body)
		if rec.Code != http.StatusBadRequest || resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
			t.Errorf("body %s: status = %d error = %+v", body, rec.Code, resp.Error)
		}
	}
	if got := env.detector.ACL().DefaultPolicy; got != security.PolicyDeny {
		t.Errorf("policy changed by invalid request: %q", got)
	}
}

func TestResetStatistics_KeepsACL(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil, nil)
	env.seedAlerts()

	rec, _ := env.do(t, http.MethodPost, "/api/v1/security/reset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	st := env.detector.SecurityStatus()
	if st.Statistics.MessagesProcessed != 0 || st.Alerts.Retained != 0 {
		t.Errorf("after reset: stats=%+v alerts=%+v", st.Statistics, st.Alerts)
	}
	if st.ACL.EntryCount != 1 {
		t.Errorf("acl entries = %d, want 1", st.ACL.EntryCount)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Minute
	env := newTestEnv(t, nil, cfg)

	for i := 0; i < 2; i++ {
		if rec, _ := env.do(t, http.MethodGet, "/api/v1/security/acl", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec, resp := env.do(t, http.MethodGet, "/api/v1/security/acl", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != "RATE_LIMITED" {
		t.Errorf("error = %+v", resp.Error)
	}

	// Health has its own, larger budget.
	if rec, _ := env.do(t, http.MethodGet, "/api/v1/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil, nil)

	rec, _ := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "rvguard_") {
		t.Error("metrics output has no rvguard_ series")
	}
}

func TestWebSocket_Unavailable(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil, nil)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/security/ws", "")
	if rec.Code != http.StatusServiceUnavailable || resp.Error == nil {
		t.Fatalf("status = %d error = %+v", rec.Code, resp.Error)
	}
}

func TestWebSocket_StreamsAlerts(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.RunWithContext(ctx) }()

	env := newTestEnv(t, hub, nil)
	srv := httptest.NewServer(env.handler)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/security/ws"

	// Missing Origin is rejected.
	if _, resp, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("dial without Origin should fail")
	} else if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("dial without Origin: resp=%v err=%v", resp, err)
	}

	header := http.Header{}
	header.Set("Origin", "http://dashboard.local")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.BroadcastJSON(ws.MessageTypeSecurityAlert, map[string]string{"alert_id": "a-1"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != ws.MessageTypeSecurityAlert || msg.Data["alert_id"] != "a-1" {
		t.Errorf("message = %+v", msg)
	}
}

func TestParseSourceAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    uint8
		wantErr bool
	}{
		{"0x42", 0x42, false},
		{"0X8f", 0x8F, false},
		{"66", 66, false},
		{"0", 0, false},
		{"255", 255, false},
		{"0xFF", 255, false},
		{"256", 0, true},
		{"0x100", 0, true},
		{"-1", 0, true},
		{"", 0, true},
		{"0x", 0, true},
		{"4 2", 0, true},
	}
	for _, tt := range tests {
		got, err := parseSourceAddress(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSourceAddress(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSourceAddress(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()
	if got := sanitizeLogValue("a\nb\x7f"); got != `a\x0ab\x7f` {
		t.Errorf("sanitizeLogValue = %q", got)
	}
}
