package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggest/assertjson"

	"github.com/dohr-michael/tasktrack/internal/config"
	"github.com/dohr-michael/tasktrack/internal/events"
	"github.com/dohr-michael/tasktrack/internal/gateway/ws"
	"github.com/dohr-michael/tasktrack/internal/tasks"
)

// waitForEvents polls the bus history until at least n events are present.
func waitForEvents(bus *events.Bus, n int) {
	for i := 0; i < 200; i++ {
		if len(bus.History(100)) >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func testOptions() Options {
	return Options{
		Host: "localhost",
		Port: 0,
		CORS: config.CORSConfig{
			AllowedOrigins: []string{config.DefaultOrigin},
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		},
	}
}

func newTestServerWithStore(t *testing.T, store tasks.Store) *Server {
	t.Helper()
	bus := events.NewBus(64)
	srv := NewServer(store, bus, testOptions())
	t.Cleanup(func() {
		srv.hub.Close()
		bus.Close()
	})
	return srv
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := tasks.OpenSQLStore(tasks.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return newTestServerWithStore(t, store)
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)

	w := do(srv, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assertjson.Equal(t, []byte(`{"status":"ok"}`), w.Body.Bytes())
}

func TestTaskLifecycle(t *testing.T) {
	srv := newTestServer(t)

	w := do(srv, http.MethodPost, "/api/tasks", `{"task":{"title":"Buy milk"}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assertjson.Equal(t, []byte(`{"id":1,"title":"Buy milk","completed":false}`), w.Body.Bytes())

	w = do(srv, http.MethodGet, "/api/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)
	assertjson.Equal(t, []byte(`[{"id":1,"title":"Buy milk","completed":false}]`), w.Body.Bytes())

	w = do(srv, http.MethodPatch, "/api/tasks/1", `{"task":{"completed":true}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assertjson.Equal(t, []byte(`{"id":1,"title":"Buy milk","completed":true}`), w.Body.Bytes())

	w = do(srv, http.MethodDelete, "/api/tasks/1", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())

	w = do(srv, http.MethodGet, "/api/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)
	assertjson.Equal(t, []byte(`[]`), w.Body.Bytes())

	w = do(srv, http.MethodDelete, "/api/tasks/1", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assertjson.Equal(t, []byte(`{"error":"Task not found"}`), w.Body.Bytes())
}

func TestCreateTaskBlankTitle(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []string{
		`{"task":{"title":""}}`,
		`{"task":{"title":"   "}}`,
		`{"task":{"completed":true}}`,
		`{"task":{"title":null}}`,
	} {
		w := do(srv, http.MethodPost, "/api/tasks", body)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, body)
		assertjson.Equal(t, []byte(`{"title":["can't be blank"]}`), w.Body.Bytes(), body)
	}

	n, err := srv.store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateTaskIgnoresUnknownKeys(t *testing.T) {
	srv := newTestServer(t)

	w := do(srv, http.MethodPost, "/api/tasks", `{"task":{"id":99,"title":"x","completed":"1","owner":"me"},"extra":true}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assertjson.Equal(t, []byte(`{"id":1,"title":"x","completed":true}`), w.Body.Bytes())
}

func TestBadRequestBodies(t *testing.T) {
	srv := newTestServer(t)

	cases := map[string]string{
		"":                     msgInvalidJSON,
		`{"task":`:             msgInvalidJSON,
		`{}`:                   msgMissingTask,
		`{"task":null}`:        msgMissingTask,
		`{"task":{}}`:          msgMissingTask,
		`{"task":"Buy milk"}`:  msgMissingTask,
		`{"title":"Buy milk"}`: msgMissingTask,
	}
	for body, msg := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(body))
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		var got map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got), body)
		assert.Equal(t, msg, got["error"], body)
	}
}

func TestUpdateTask(t *testing.T) {
	srv := newTestServer(t)
	do(srv, http.MethodPost, "/api/tasks", `{"task":{"title":"draft","completed":true}}`)

	w := do(srv, http.MethodPatch, "/api/tasks/1", `{"task":{"title":"final"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assertjson.Equal(t, []byte(`{"id":1,"title":"final","completed":true}`), w.Body.Bytes())

	w = do(srv, http.MethodPatch, "/api/tasks/1", `{"task":{"title":" "}}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assertjson.Equal(t, []byte(`{"title":["can't be blank"]}`), w.Body.Bytes())

	w = do(srv, http.MethodGet, "/api/tasks/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assertjson.Equal(t, []byte(`{"id":1,"title":"final","completed":true}`), w.Body.Bytes())

	w = do(srv, http.MethodPatch, "/api/tasks/1", `{"task":{"completed":"false"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assertjson.Equal(t, []byte(`{"id":1,"title":"final","completed":false}`), w.Body.Bytes())
}

func TestUnknownTaskIDs(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/api/tasks/42", "/api/tasks/abc", "/api/tasks/-1", "/api/tasks/0"} {
		for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
			w := do(srv, method, path, `{"task":{"completed":true}}`)
			assert.Equal(t, http.StatusNotFound, w.Code, method+" "+path)
			assertjson.Equal(t, []byte(`{"error":"Task not found"}`), w.Body.Bytes(), method+" "+path)
		}
	}
}

type failingStore struct {
	tasks.Store
}

func (failingStore) List(context.Context) ([]tasks.Task, error) {
	return nil, errors.New("disk on fire")
}

func TestStoreFaultIsInternalError(t *testing.T) {
	srv := newTestServerWithStore(t, failingStore{})

	w := do(srv, http.MethodGet, "/api/tasks", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assertjson.Equal(t, []byte(`{"error":"internal server error"}`), w.Body.Bytes())
}

func TestMutationsPublishEvents(t *testing.T) {
	srv := newTestServer(t)

	do(srv, http.MethodPost, "/api/tasks", `{"task":{"title":"a"}}`)
	do(srv, http.MethodPatch, "/api/tasks/1", `{"task":{"completed":true}}`)
	do(srv, http.MethodPatch, "/api/tasks/1", `{"task":{"title":""}}`) // rejected, no event
	do(srv, http.MethodDelete, "/api/tasks/1", "")
	waitForEvents(srv.bus, 3)

	history := srv.bus.History(10)
	require.Len(t, history, 3)
	assert.Equal(t, events.EventTaskCreated, history[0].Type)
	assert.Equal(t, events.EventTaskUpdated, history[1].Type)
	assert.Equal(t, events.EventTaskDeleted, history[2].Type)

	updated, ok := events.GetTaskUpdatedPayload(history[1])
	require.True(t, ok)
	assert.True(t, updated.Task.Completed)

	deleted, ok := events.GetTaskDeletedPayload(history[2])
	require.True(t, ok)
	assert.Equal(t, int64(1), deleted.ID)
}

func TestMutationSucceedsWhenBusClosed(t *testing.T) {
	srv := newTestServer(t)
	srv.bus.Close()

	w := do(srv, http.MethodPost, "/api/tasks", `{"task":{"title":"still saved"}}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(srv, http.MethodGet, "/api/tasks", "")
	assertjson.Equal(t, []byte(`[{"id":1,"title":"still saved","completed":false}]`), w.Body.Bytes())
}

func TestServerStartAndShutdown(t *testing.T) {
	store, err := tasks.OpenSQLStore(tasks.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	bus := events.NewBus(8)
	t.Cleanup(bus.Close)
	opts := testOptions()
	opts.Host = "127.0.0.1"
	srv := NewServer(store, bus, opts)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 5*time.Millisecond)

	resp, err := http.Get("http://" + srv.Addr() + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, <-errCh)
}

func TestServerStartPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	opts := testOptions()
	opts.Host = "127.0.0.1"
	opts.Port = ln.Addr().(*net.TCPAddr).Port
	store, err := tasks.OpenSQLStore(tasks.MemoryPath)
	require.NoError(t, err)
	defer store.Close()
	bus := events.NewBus(8)
	defer bus.Close()
	srv := NewServer(store, bus, opts)

	err = srv.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen 127.0.0.1:"+strconv.Itoa(opts.Port))
}

func TestHandleEvents_LimitParam(t *testing.T) {
	srv := newTestServer(t)

	w := do(srv, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	assertjson.Equal(t, []byte(`[]`), w.Body.Bytes())

	for i := 0; i < 10; i++ {
		srv.bus.Publish(context.Background(), events.NewTypedEvent(events.SourceAPI, events.TaskDeletedPayload{ID: int64(i + 1)}))
	}
	waitForEvents(srv.bus, 10)

	w = do(srv, http.MethodGet, "/api/events?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body []events.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body, 5)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	for _, method := range []string{http.MethodPatch, http.MethodDelete, http.MethodPost} {
		req := httptest.NewRequest(http.MethodOptions, "/api/tasks/1", nil)
		req.Header.Set("Origin", config.DefaultOrigin)
		req.Header.Set("Access-Control-Request-Method", method)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		assert.Less(t, w.Code, 300, method)
		assert.Equal(t, config.DefaultOrigin, w.Header().Get("Access-Control-Allow-Origin"), method)
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"), method)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), method)
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks/1", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestTaskFeed(t *testing.T) {
	srv := newTestServer(t)
	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(httpSrv.URL, "http")+"/api/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	for srv.hub.Clients() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("ws client never registered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	resp, err := http.Post(httpSrv.URL+"/api/tasks", "application/json", strings.NewReader(`{"task":{"title":"from feed"}}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	frame, err := ws.UnmarshalFrame(data)
	require.NoError(t, err)
	assert.Equal(t, ws.FrameTypeEvent, frame.Type)
	assert.Equal(t, string(events.EventTaskCreated), frame.Event)

	var e events.Event
	require.NoError(t, json.Unmarshal(frame.Payload, &e))
	created, ok := events.GetTaskCreatedPayload(e)
	require.True(t, ok)
	assert.Equal(t, "from feed", created.Task.Title)
}

func TestOriginPatterns(t *testing.T) {
	assert.Equal(t, []string{"localhost:4200", "app.example.com"},
		originPatterns([]string{"http://localhost:4200", "https://app.example.com"}))
	assert.Equal(t, []string{"*"}, originPatterns([]string{"http://a", "*"}))
}
