package mailer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytsum/ytsum/gemini"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
}

func TestParseConnectionString(t *testing.T) {
	endpoint, key, err := ParseConnectionString("endpoint=https://res.communication.azure.com/;accesskey=abc==")
	require.NoError(t, err)
	assert.Equal(t, "https://res.communication.azure.com/", endpoint)
	assert.Equal(t, "abc==", key, "base64 padding in the key must survive parsing")

	_, _, err = ParseConnectionString("accesskey=abc")
	require.Error(t, err)

	_, _, err = ParseConnectionString("")
	require.Error(t, err)
}

func TestNewClientValidation(t *testing.T) {
	cs := "endpoint=https://res.communication.azure.com;accesskey=" + testKey()

	_, err := NewClient(cs, "", "to@example.com")
	assert.Error(t, err)

	_, err = NewClient("endpoint=https://x.com;accesskey=not-base64!!!", "a@b.c", "d@e.f")
	assert.Error(t, err)

	client, err := NewClient(cs, "noreply@example.com", "me@example.com")
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestSendSuccessSignsRequest(t *testing.T) {
	var captured *http.Request
	var body sendRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(r.Context())
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"id":"op-1","status":"Running"}`))
	}))
	defer srv.Close()

	client, err := NewClient("endpoint="+srv.URL+";accesskey="+testKey(), "noreply@example.com", "me@example.com")
	require.NoError(t, err)

	summary := &gemini.Summary{
		Title:          "A Video",
		URL:            "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		BriefSummary:   "Things happen.",
		SummaryBullets: []string{"one", "two"},
	}
	require.NoError(t, client.SendSuccess(context.Background(), summary, "https://www.notion.so/page-1"))

	require.NotNil(t, captured)
	assert.Equal(t, "/emails:send", captured.URL.Path)
	assert.Equal(t, apiVersion, captured.URL.Query().Get("api-version"))
	assert.NotEmpty(t, captured.Header.Get("x-ms-date"))
	assert.NotEmpty(t, captured.Header.Get("x-ms-content-sha256"))
	auth := captured.Header.Get("Authorization")
	assert.True(t, strings.HasPrefix(auth, "HMAC-SHA256 SignedHeaders=x-ms-date;host;x-ms-content-sha256&Signature="), auth)

	assert.Equal(t, "noreply@example.com", body.SenderAddress)
	require.Len(t, body.Recipients.To, 1)
	assert.Equal(t, "me@example.com", body.Recipients.To[0].Address)
	assert.Contains(t, body.Content.Subject, "A Video")
	assert.Contains(t, body.Content.HTML, "notion.so/page-1")
}

func TestSendFailureEscapesReport(t *testing.T) {
	var body sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewClient("endpoint="+srv.URL+";accesskey="+testKey(), "noreply@example.com", "me@example.com")
	require.NoError(t, err)

	require.NoError(t, client.SendFailure(context.Background(), "# Report\n<script>alert(1)</script>"))
	assert.Contains(t, body.Content.HTML, "&lt;script&gt;")
	assert.NotContains(t, body.Content.HTML, "<script>")
}

func TestSendServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"Denied"}}`))
	}))
	defer srv.Close()

	client, err := NewClient("endpoint="+srv.URL+";accesskey="+testKey(), "noreply@example.com", "me@example.com")
	require.NoError(t, err)

	err = client.SendFailure(context.Background(), "report")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSend)
}
