package telegram

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropwatch/dropwatch/internal/notify"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(Config{
		Token:   "TEST-TOKEN",
		ChatID:  "42",
		BaseURL: srv.URL,
	}, testLogger())
}

func TestClient_SendMessageSuccess(t *testing.T) {
	var gotPath, gotChatID, gotText, gotParseMode string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotChatID = r.PostFormValue("chat_id")
		gotText = r.PostFormValue("text")
		gotParseMode = r.PostFormValue("parse_mode")
		w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	})

	err := client.SendMessage(context.Background(), "hello *world*", true)
	require.NoError(t, err)

	assert.Equal(t, "/botTEST-TOKEN/sendMessage", gotPath)
	assert.Equal(t, "42", gotChatID)
	assert.Equal(t, "hello *world*", gotText)
	assert.Equal(t, "MarkdownV2", gotParseMode)
}

func TestClient_PlainTextOmitsParseMode(t *testing.T) {
	var hasParseMode bool

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		_, hasParseMode = r.PostForm["parse_mode"]
		w.Write([]byte(`{"ok":true}`))
	})

	err := client.SendMessage(context.Background(), "plain", false)
	require.NoError(t, err)
	assert.False(t, hasParseMode)
}

func TestClient_RetryAfterBecomesThrottled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 7","parameters":{"retry_after":7}}`))
	})

	err := client.SendMessage(context.Background(), "x", true)
	require.Error(t, err)

	var throttled *notify.Throttled
	require.ErrorAs(t, err, &throttled)
	assert.Equal(t, 7*time.Second, throttled.RetryAfter)
}

func TestClient_BadRequestIsNonRetryable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`))
	})

	err := client.SendMessage(context.Background(), "broken _markdown", true)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Code)
	assert.Contains(t, apiErr.Description, "can't parse entities")

	var throttled *notify.Throttled
	assert.False(t, errors.As(err, &throttled))
}

func TestClient_ServerErrorIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>bad gateway</html>`))
	})

	err := client.SendMessage(context.Background(), "x", true)
	require.Error(t, err)

	var transient *notify.Transient
	assert.ErrorAs(t, err, &transient)
}

func TestClient_NetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := New(Config{Token: "T", ChatID: "42", BaseURL: url}, testLogger())

	err := client.SendMessage(context.Background(), "x", false)
	require.Error(t, err)

	var transient *notify.Transient
	assert.ErrorAs(t, err, &transient)
}
