package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmaxmax/go-sse"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := NewStore(writeResults(t, testResults))
	require.NoError(t, err)

	return NewServer(ServerConfig{
		Port:     8080,
		Title:    "Modelboard",
		Username: "analyst",
		Password: "correct-horse",
	}, store, NewHub(), NewBuffer(100))
}

func testMux(t *testing.T, srv *Server) *http.ServeMux {
	t.Helper()
	mux, err := srv.routes()
	require.NoError(t, err)
	return mux
}

// login performs a form login and returns the session cookie.
func login(t *testing.T, mux *http.ServeMux) *http.Cookie {
	t.Helper()

	form := url.Values{"username": {"analyst"}, "password": {"correct-horse"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))

	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestNewServer(t *testing.T) {
	srv := newTestServer(t)
	assert.NotNil(t, srv)
	assert.NotNil(t, srv.Hub())
	assert.NotNil(t, srv.Buffer())
	assert.Equal(t, 0, srv.Sessions().Count())
}

func TestServer_LoginPage(t *testing.T) {
	mux := testMux(t, newTestServer(t))

	req := httptest.NewRequest(http.MethodGet, "/login", http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `id="login-form"`)
	assert.Contains(t, string(body), "Modelboard")
	assert.NotContains(t, string(body), "login-error")
}

func TestServer_Login(t *testing.T) {
	t.Run("valid credentials set session cookie", func(t *testing.T) {
		srv := newTestServer(t)
		mux := testMux(t, srv)

		c := login(t, mux)
		assert.NotEmpty(t, c.Value)
		assert.True(t, c.HttpOnly)
		assert.Equal(t, 1, srv.Sessions().Count())
	})

	t.Run("bad credentials re-render form with error", func(t *testing.T) {
		srv := newTestServer(t)
		mux := testMux(t, srv)

		form := url.Values{"username": {"analyst"}, "password": {"wrong"}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		resp := w.Result()
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "login-error")
		assert.Contains(t, string(body), "invalid username or password")
		assert.Equal(t, 0, srv.Sessions().Count())
	})
}

func TestServer_Logout(t *testing.T) {
	srv := newTestServer(t)
	mux := testMux(t, srv)
	c := login(t, mux)

	req := httptest.NewRequest(http.MethodPost, "/logout", http.NoBody)
	req.AddCookie(c)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Equal(t, 0, srv.Sessions().Count())
}

func TestServer_AuthRedirect(t *testing.T) {
	mux := testMux(t, newTestServer(t))

	for _, path := range []string{"/", "/results", "/charts", "/api/models"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			resp := w.Result()
			defer resp.Body.Close()
			assert.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, "/login", resp.Header.Get("Location"))
		})
	}
}

func TestServer_Dashboard(t *testing.T) {
	srv := newTestServer(t)
	mux := testMux(t, srv)
	c := login(t, mux)

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.AddCookie(c)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	bodyStr := string(body)
	assert.Contains(t, bodyStr, `id="user-name">analyst<`)
	assert.Contains(t, bodyStr, "summary-widget")
	assert.Contains(t, bodyStr, `data-nav="results"`)
	assert.Contains(t, bodyStr, `data-nav="charts"`)
	assert.Equal(t, 4, strings.Count(bodyStr, "summary-widget"))
}

func TestServer_Results(t *testing.T) {
	srv := newTestServer(t)
	mux := testMux(t, srv)
	c := login(t, mux)

	req := httptest.NewRequest(http.MethodGet, "/results", http.NoBody)
	req.AddCookie(c)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	bodyStr := string(body)
	assert.Contains(t, bodyStr, `id="model-results"`)
	assert.Equal(t, 3, strings.Count(bodyStr, "model-row"))
	assert.Contains(t, bodyStr, "falcon-7b")
	assert.Contains(t, bodyStr, "status-ready")
	assert.Contains(t, bodyStr, "status-failed")
}

func TestServer_Charts(t *testing.T) {
	srv := newTestServer(t)
	mux := testMux(t, srv)
	c := login(t, mux)

	req := httptest.NewRequest(http.MethodGet, "/charts", http.NoBody)
	req.AddCookie(c)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	bodyStr := string(body)
	assert.Contains(t, bodyStr, `id="connection-status"`)
	assert.Contains(t, bodyStr, `id="metric-latest"`)
	assert.Equal(t, 2, strings.Count(bodyStr, "chart-panel"))
}

func TestServer_APIModels(t *testing.T) {
	srv := newTestServer(t)
	mux := testMux(t, srv)
	c := login(t, mux)

	req := httptest.NewRequest(http.MethodGet, "/api/models", http.NoBody)
	req.AddCookie(c)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var snap Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	require.Len(t, snap.Models, 3)
	assert.Equal(t, "hermes-13b", snap.Models[1].Name)
}

func TestServer_APIMetrics(t *testing.T) {
	srv := newTestServer(t)
	mux := testMux(t, srv)
	c := login(t, mux)

	srv.Buffer().Add(NewMetricEvent("latency", "falcon-7b", 111, "ms"))
	srv.Buffer().Add(NewMetricEvent("accuracy", "falcon-7b", 91.3, "%"))
	srv.Buffer().Add(NewMetricEvent("latency", "hermes-13b", 204, "ms"))
	srv.Buffer().Add(NewModelEvent("orca-mini", "failed")) // not a metric, never returned

	get := func(target string) *http.Response {
		req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
		req.AddCookie(c)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		return w.Result()
	}

	t.Run("by widget", func(t *testing.T) {
		resp := get("/api/metrics?widget=latency")
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

		var events []Event
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
		require.Len(t, events, 2)
		assert.Equal(t, "falcon-7b", events[0].Model)
		assert.Equal(t, "hermes-13b", events[1].Model)
	})

	t.Run("unknown widget returns empty array", func(t *testing.T) {
		resp := get("/api/metrics?widget=throughput")
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var events []Event
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
		assert.Empty(t, events)
	})

	t.Run("missing widget rejected", func(t *testing.T) {
		resp := get("/api/metrics")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("requires auth", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/metrics?widget=latency", http.NoBody)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		assert.Equal(t, http.StatusFound, w.Result().StatusCode)
	})
}

func TestServer_Healthz(t *testing.T) {
	mux := testMux(t, newTestServer(t))

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestServer_StaticFiles(t *testing.T) {
	mux := testMux(t, newTestServer(t))

	req := httptest.NewRequest(http.MethodGet, "/static/app.css", http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), ".summary-widget")
}

func TestServer_EventsStream(t *testing.T) {
	srv := newTestServer(t)
	mux := testMux(t, srv)

	// seed one event so connecting clients get history
	seed := NewMetricEvent("latency", "falcon-7b", 111, "ms")
	srv.Buffer().Add(seed)

	ts := httptest.NewServer(mux)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", http.NoBody)
	require.NoError(t, err)

	received := make(chan Event, 16)
	conn := sse.NewConnection(req)
	conn.SubscribeToAll(func(ev sse.Event) {
		var e Event
		if err := json.Unmarshal([]byte(ev.Data), &e); err != nil {
			return
		}
		received <- e
	})

	connDone := make(chan error, 1)
	go func() { connDone <- conn.Connect() }()

	// history replay arrives first
	select {
	case e := <-received:
		assert.Equal(t, EventTypeMetric, e.Type)
		assert.Equal(t, "falcon-7b", e.Model)
	case <-time.After(3 * time.Second):
		t.Fatal("did not receive buffered event")
	}

	// then a live broadcast
	require.Eventually(t, func() bool { return srv.Hub().ClientCount() == 1 },
		2*time.Second, 20*time.Millisecond)
	srv.Hub().Broadcast(NewModelEvent("hermes-13b", "ready"))

	select {
	case e := <-received:
		assert.Equal(t, EventTypeModel, e.Type)
		assert.Equal(t, "hermes-13b", e.Model)
		assert.Equal(t, "ready", e.Status)
	case <-time.After(3 * time.Second):
		t.Fatal("did not receive live event")
	}

	cancel()
	err = <-connDone
	if err != nil && !errors.Is(err, context.Canceled) {
		// connection errors on shutdown are expected, anything else is not
		var connErr *sse.ConnectionError
		assert.True(t, errors.As(err, &connErr), "unexpected connect error: %v", err)
	}
}

func TestServer_EventsStreamNoReplayDuplicates(t *testing.T) {
	srv := newTestServer(t)
	mux := testMux(t, srv)

	base := time.Now()
	old := Event{Type: EventTypeMetric, Widget: "latency", Model: "falcon-7b", Value: 111, Unit: "ms", Timestamp: base.Add(-time.Second)}
	newest := Event{Type: EventTypeMetric, Widget: "latency", Model: "hermes-13b", Value: 204, Unit: "ms", Timestamp: base}
	srv.Buffer().Add(old)
	srv.Buffer().Add(newest)

	ts := httptest.NewServer(mux)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", http.NoBody)
	require.NoError(t, err)

	received := make(chan Event, 16)
	conn := sse.NewConnection(req)
	conn.SubscribeToAll(func(ev sse.Event) {
		var e Event
		if err := json.Unmarshal([]byte(ev.Data), &e); err != nil {
			return
		}
		received <- e
	})

	connDone := make(chan error, 1)
	go func() { connDone <- conn.Connect() }()

	readEvent := func() Event {
		select {
		case e := <-received:
			return e
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for event")
			return Event{}
		}
	}

	assert.Equal(t, "falcon-7b", readEvent().Model)
	assert.Equal(t, "hermes-13b", readEvent().Model)

	require.Eventually(t, func() bool { return srv.Hub().ClientCount() == 1 },
		2*time.Second, 20*time.Millisecond)

	// an event the replay already delivered gets broadcast again, then a
	// genuinely new one follows; only the new one may reach the client
	srv.Hub().Broadcast(newest)
	fresh := Event{Type: EventTypeMetric, Widget: "latency", Model: "orca-mini", Value: 88, Unit: "ms", Timestamp: base.Add(time.Second)}
	srv.Hub().Broadcast(fresh)

	assert.Equal(t, "orca-mini", readEvent().Model)

	cancel()
	err = <-connDone
	if err != nil && !errors.Is(err, context.Canceled) {
		var connErr *sse.ConnectionError
		assert.True(t, errors.As(err, &connErr), "unexpected connect error: %v", err)
	}
}

func TestServer_StartStop(t *testing.T) {
	srv := newTestServer(t)
	srv.cfg.Port = 38217

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:38217/healthz")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond, "server should become ready")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_Stop_WithoutStart(t *testing.T) {
	srv := newTestServer(t)
	assert.NoError(t, srv.Stop())
}
