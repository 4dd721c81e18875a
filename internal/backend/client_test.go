package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodmate/internal/config"
	"moodmate/internal/handler"
	"moodmate/internal/llm"
	"moodmate/internal/model"
	"moodmate/internal/service"
	"moodmate/internal/storage"
)

func stub(t *testing.T, fn http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(fn)
	t.Cleanup(srv.Close)
	return NewClientWithHTTP(srv.URL+"/api/", srv.Client(), StaticToken("tok"))
}

func TestRequestsCarryBearerAndJSON(t *testing.T) {
	c := stub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat/send", r.URL.Path)

		var body model.SendRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hi", body.Message)
		assert.Empty(t, body.SessionID)

		_, _ = w.Write([]byte(`{"success":true,"data":{"sessionId":"s2","response":[
			{"_id":"1","content":"hi","role":"user","timestamp":"2026-05-01T10:00:00Z"},
			{"_id":"2","content":"hello","role":"assistant","timestamp":"2026-05-01T10:00:01Z"}
		],"generateTask":true,"task":{"id":"t1","title":"Walk","type":"movement","steps":[],"sessionId":"s2"}}}`))
	})

	out, err := c.SendMessage(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Equal(t, "s2", out.SessionID)
	require.Len(t, out.Messages, 2)
	assert.Equal(t, model.SenderUser, out.Messages[0].Sender)
	assert.Equal(t, model.SenderAI, out.Messages[1].Sender)
	assert.True(t, out.GenerateTask)
	require.NotNil(t, out.Task)
	assert.Equal(t, "t1", out.Task.ID)
	assert.Equal(t, model.CategoryMovement, out.Task.Category)
}

func TestSendMessageRequiresSessionID(t *testing.T) {
	c := stub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"response":[]}}`))
	})
	_, err := c.SendMessage(context.Background(), "hi", "")
	assert.ErrorIs(t, err, ErrMissingData)
}

func TestUnsuccessfulEnvelope(t *testing.T) {
	c := stub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"nope"}`))
	})

	_, err := c.FetchTranscript(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrUnsuccessful)
	assert.ErrorContains(t, err, "nope")

	assert.ErrorIs(t, c.CompleteTask(context.Background(), "t1", "s1"), ErrUnsuccessful)
	_, err = c.FetchTask(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrUnsuccessful)
}

func TestHTTPStatusError(t *testing.T) {
	c := stub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := c.ListSessions(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Equal(t, "boom", se.Body)
}

func TestFetchTaskNullData(t *testing.T) {
	c := stub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/task/s1", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":null}`))
	})

	task, err := c.FetchTask(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestCompleteTaskRequestShape(t *testing.T) {
	c := stub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/task/t1/complete", r.URL.Path)
		assert.Equal(t, "t1", r.URL.Query().Get("taskId"))
		assert.Equal(t, "s1", r.URL.Query().Get("sessionId"))
		_, _ = w.Write([]byte(`{"success":true,"data":{"_id":"t1","status":"completed"}}`))
	})

	require.NoError(t, c.CompleteTask(context.Background(), "t1", "s1"))
}

func TestContextDeadline(t *testing.T) {
	release := make(chan struct{})
	c := stub(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.ListSessions(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientAgainstDevBackend(t *testing.T) {
	store := storage.NewMemoryStorage()
	chat := service.NewChatService(store, llm.NewCanned(), service.NewPlanner(), config.SessionConfig{})
	tasks := service.NewTaskService(store)
	srv := httptest.NewServer(handler.NewRouter(&config.Config{}, handler.NewChatHandler(chat), handler.NewTaskHandler(tasks)))
	defer srv.Close()

	c := NewClient(config.ClientConfig{BaseURL: srv.URL + "/api", RequestTimeout: 5 * time.Second}, StaticToken("dev"))
	ctx := context.Background()

	out, err := c.SendMessage(ctx, "I've been so stressed lately", "")
	require.NoError(t, err)
	require.NotEmpty(t, out.SessionID)
	require.True(t, out.GenerateTask)

	msgs, err := c.FetchTranscript(ctx, out.SessionID)
	require.NoError(t, err)
	assert.Equal(t, out.Messages, msgs)

	task, err := c.FetchTask(ctx, out.SessionID)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, out.Task.ID, task.ID)

	require.NoError(t, c.CompleteTask(ctx, task.ID, out.SessionID))

	items, err := c.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Task)
	assert.Equal(t, model.TaskCompleted, items[0].Task.Status)

	anon := NewClient(config.ClientConfig{BaseURL: srv.URL + "/api", RequestTimeout: time.Second}, nil)
	_, err = anon.ListSessions(ctx)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
}
