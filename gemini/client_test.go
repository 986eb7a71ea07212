package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytsum/ytsum/keyvault"
)

func TestParseSummary(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		s := parseSummary(`{"title":"Go Talk","tags":["go"],"brief_summary":"About Go."}`)
		assert.Equal(t, "Go Talk", s.Title)
		assert.Equal(t, []string{"go"}, s.Tags)
		assert.Empty(t, s.RawResponse)
	})

	t.Run("json code fence", func(t *testing.T) {
		s := parseSummary("Here you go:\n```json\n{\"title\":\"Fenced\"}\n```\nEnjoy!")
		assert.Equal(t, "Fenced", s.Title)
	})

	t.Run("bare code fence", func(t *testing.T) {
		s := parseSummary("```\n{\"title\":\"Bare\"}\n```")
		assert.Equal(t, "Bare", s.Title)
	})

	t.Run("unparseable response falls back", func(t *testing.T) {
		s := parseSummary("The video is about cooking pasta.")
		assert.Empty(t, s.Title)
		assert.Equal(t, "The video is about cooking pasta.", s.RawResponse)
		assert.NotEmpty(t, s.Note)
	})
}

func TestSummarize(t *testing.T) {
	const videoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 2)
		assert.Equal(t, videoURL, req.Contents[0].Parts[0].FileData.FileURI)
		assert.Contains(t, req.Contents[0].Parts[1].Text, videoURL)
		assert.Equal(t, "MEDIA_RESOLUTION_LOW", req.GenerationConfig.MediaResolution)

		resp := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{
						"text": "```json\n{\"title\":\"A Video\",\"brief_summary\":\"Things happen.\"}\n```",
					}},
				},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewClient(keyvault.StaticSource{SecretName: "test-key"}, Options{BaseURL: srv.URL})

	summary, err := client.Summarize(context.Background(), videoURL)
	require.NoError(t, err)
	assert.Equal(t, "A Video", summary.Title)
	assert.Equal(t, "Things happen.", summary.BriefSummary)
	assert.Equal(t, videoURL, summary.URL, "URL should be filled from input when model omits it")
}

func TestSummarizeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	client := NewClient(keyvault.StaticSource{SecretName: "bad-key"}, Options{BaseURL: srv.URL})

	_, err := client.Summarize(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAPI)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestSummarizeMissingSecret(t *testing.T) {
	client := NewClient(keyvault.StaticSource{}, Options{BaseURL: "http://127.0.0.1:1"})

	_, err := client.Summarize(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), SecretName)
}
