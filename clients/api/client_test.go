package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dohr-michael/tasktrack/internal/config"
	"github.com/dohr-michael/tasktrack/internal/events"
	"github.com/dohr-michael/tasktrack/internal/gateway"
	"github.com/dohr-michael/tasktrack/internal/tasks"
)

func newTestAPI(t *testing.T) *Client {
	t.Helper()
	store, err := tasks.OpenSQLStore(tasks.MemoryPath)
	require.NoError(t, err)
	bus := events.NewBus(16)

	srv := gateway.NewServer(store, bus, gateway.Options{CORS: config.Default().Gateway.CORS})
	httpSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		httpSrv.Close()
		srv.Shutdown(context.Background())
		bus.Close()
		store.Close()
	})
	return NewClient(httpSrv.URL + "/")
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestAPI(t)

	require.NoError(t, c.Health(ctx))

	list, err := c.ListTasks(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	created, err := c.CreateTask(ctx, tasks.Task{ID: 42, Title: "Buy milk"})
	require.NoError(t, err)
	assert.Equal(t, tasks.Task{ID: 1, Title: "Buy milk"}, created)

	got, err := c.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := c.UpdateTask(ctx, created.ID, tasks.SetCompleted(true))
	require.NoError(t, err)
	assert.Equal(t, tasks.Task{ID: 1, Title: "Buy milk", Completed: true}, updated)

	// completed=false must travel even though it is the zero value.
	updated, err = c.UpdateTask(ctx, created.ID, tasks.SetCompleted(false))
	require.NoError(t, err)
	assert.False(t, updated.Completed)

	require.NoError(t, c.DeleteTask(ctx, created.ID))

	err = c.DeleteTask(ctx, created.ID)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "Task not found", err.Error())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestClientValidationError(t *testing.T) {
	c := newTestAPI(t)

	_, err := c.CreateTask(context.Background(), tasks.Task{Title: "  "})
	require.Error(t, err)
	assert.True(t, tasks.IsValidation(err))
	assert.Equal(t, "validation failed: Title can't be blank", err.Error())

	var ve *tasks.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"can't be blank"}, ve.Fields["title"])
}

func TestClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).ListTasks(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestClientUnparseableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ListTasks(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestClientNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ListTasks(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "HTTP 502 Bad Gateway", apiErr.Error())
	assert.NotErrorIs(t, err, ErrTransport)
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(srv.URL, WithTimeout(20*time.Millisecond)).ListTasks(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}
