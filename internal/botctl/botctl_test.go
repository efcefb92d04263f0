package botctl

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bitmax/internal/botctl/output"
)

type captured struct {
	method string
	path   string
	query  string
	body   map[string]any
	reqID  string
}

func newServer(t *testing.T, status int, reply string, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.reqID = r.Header.Get("X-Request-Id")
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDispatch_StrategyStatus(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusOK, `{"code":0,"message":"ok","data":{"id":7,"status":"live"}}`, &got)
	var out bytes.Buffer
	ctx := Context{APIBase: srv.URL, Output: output.FormatJSON, Out: &out}

	if err := Dispatch(ctx, []string{"strategies", "status", "7", "live"}); err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.method != http.MethodPost || got.path != "/api/strategies/7/status" {
		t.Fatalf("request=%s %s", got.method, got.path)
	}
	if got.body["status"] != "live" {
		t.Fatalf("body=%v", got.body)
	}
	if got.reqID == "" {
		t.Fatalf("missing request id header")
	}
	if !strings.Contains(out.String(), `"status": "live"`) {
		t.Fatalf("output=%s", out.String())
	}
}

func TestDispatch_ServerErrorMessage(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusConflict, `{"code":409,"message":"tick already in progress"}`, &got)
	ctx := Context{APIBase: srv.URL, Out: io.Discard}

	err := Dispatch(ctx, []string{"tick"})
	if err == nil || !strings.Contains(err.Error(), "tick already in progress") {
		t.Fatalf("err=%v want conflict message", err)
	}
}

func TestDispatch_TradesListQuery(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusOK, `{"code":0,"message":"ok","data":[{"id":1,"side":"buy"},{"id":2,"side":"sell"}]}`, &got)
	var out bytes.Buffer
	ctx := Context{APIBase: srv.URL, Output: output.FormatText, Out: &out}

	if err := Dispatch(ctx, []string{"trades", "list", "--owner", "alice", "--side", "buy", "--limit", "5"}); err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.path != "/api/trades" {
		t.Fatalf("path=%s", got.path)
	}
	for _, want := range []string{"owner=alice", "side=buy", "limit=5"} {
		if !strings.Contains(got.query, want) {
			t.Fatalf("query=%s missing %s", got.query, want)
		}
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "ID") {
		t.Fatalf("table output=%q", out.String())
	}
}

func TestDispatch_PortfolioSetValidatesHoldings(t *testing.T) {
	ctx := Context{APIBase: "http://127.0.0.1:0", Out: io.Discard}
	if err := Dispatch(ctx, []string{"portfolio", "set", "--owner", "alice", "--holdings", "[1]"}); err == nil {
		t.Fatalf("expected holdings validation error")
	}
}

func TestDispatch_UnknownCommand(t *testing.T) {
	if err := Dispatch(Context{Out: io.Discard}, []string{"launch"}); err == nil {
		t.Fatalf("expected error")
	}
}
