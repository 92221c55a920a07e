package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gocas "github.com/njchilds90/gocas"
)

// ============================================================
// HTTP endpoint tests
// ============================================================

func testServer(t *testing.T, maxDepth int) *httptest.Server {
	t.Helper()
	cfg := config{ToolTimeout: 5 * time.Second, MaxDepth: maxDepth}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(newMux(cfg, logger))
	t.Cleanup(srv.Close)
	return srv
}

func postTool(t *testing.T, srv *httptest.Server, body string) (int, http.Header, []byte) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/tool", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, resp.Header, raw
}

func TestServer_ToolIntegrate(t *testing.T) {
	srv := testServer(t, 10)
	body := `{"tool":"integrate","params":{"expr":{"type":"call","name":"sin","arg":{"type":"sym","name":"x"}},"var":"x"}}`
	status, hdr, raw := postTool(t, srv, body)
	if status != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", status, raw)
	}
	if hdr.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if ct := hdr.Get("Content-Type"); ct != "application/json" {
		t.Errorf("want application/json, got %s", ct)
	}
	var tr gocas.ToolResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		t.Fatalf("decode response: %v (%s)", err, raw)
	}
	if tr.Kind != "closed-form" {
		t.Fatalf("want closed-form, got %s (%s)", tr.Kind, tr.Error)
	}
	if tr.String != "-1*cos(x)" {
		t.Errorf("∫sin dx over HTTP: want -1*cos(x), got %s", tr.String)
	}
}

func TestServer_DepthDefaultApplies(t *testing.T) {
	// The request carries no max_depth; the server injects its configured
	// value, and a budget of 1 starves by-parts.
	srv := testServer(t, 1)
	body := `{"tool":"integrate","params":{"expr":{"type":"product","factors":[{"type":"sym","name":"x"},{"type":"call","name":"sin","arg":{"type":"sym","name":"x"}}]},"var":"x"}}`
	status, _, raw := postTool(t, srv, body)
	if status != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", status, raw)
	}
	var tr gocas.ToolResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		t.Fatal(err)
	}
	if tr.Kind != "symbolic-fallback" {
		t.Errorf("want symbolic-fallback under server depth 1, got %s", tr.Kind)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := testServer(t, 10)
	resp, err := http.Get(srv.URL + "/tool")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /tool: want 405, got %d", resp.StatusCode)
	}
}

func TestServer_BadJSON(t *testing.T) {
	srv := testServer(t, 10)
	status, _, raw := postTool(t, srv, `{"tool": "simplify",`)
	if status != http.StatusBadRequest {
		t.Errorf("want 400, got %d: %s", status, raw)
	}
}

func TestServer_RequestIDOnErrorResponses(t *testing.T) {
	// Failed calls need the same log correlation as successful ones.
	srv := testServer(t, 10)

	status, hdr, _ := postTool(t, srv, `{"tool": "simplify",`)
	if status != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", status)
	}
	if hdr.Get("X-Request-ID") == "" {
		t.Error("400 response missing X-Request-ID header")
	}

	status, hdr, _ = postTool(t, srv, `{"tool":"latex","params":{"expr":{"type":"sym","name":"x"}}} {"x":1}`)
	if status != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", status)
	}
	if hdr.Get("X-Request-ID") == "" {
		t.Error("trailing-data response missing X-Request-ID header")
	}
}

func TestServer_TrailingData(t *testing.T) {
	srv := testServer(t, 10)
	body := `{"tool":"latex","params":{"expr":{"type":"sym","name":"x"}}} {"x":1}`
	status, _, raw := postTool(t, srv, body)
	if status != http.StatusBadRequest {
		t.Fatalf("want 400, got %d: %s", status, raw)
	}
	if !strings.Contains(string(raw), "trailing data") {
		t.Errorf("want trailing-data error, got %s", raw)
	}
}

func TestServer_Health(t *testing.T) {
	srv := testServer(t, 10)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["status"] != "ok" {
		t.Errorf("want status ok, got %v", out["status"])
	}
}

func TestServer_Schema(t *testing.T) {
	srv := testServer(t, 10)
	resp, err := http.Get(srv.URL + "/schema")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(raw) {
		t.Fatalf("schema is not valid JSON: %s", raw)
	}
	if !strings.Contains(string(raw), `"integrate"`) {
		t.Error("schema does not list the integrate tool")
	}
}
