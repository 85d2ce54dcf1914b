package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenRouterGenerate_ReturnsTrimmedAnswer(t *testing.T) {
	var got openrouterRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Pho is best in Hanoi.  "}}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider("openrouter", map[string]interface{}{
		"api_key":     "test-key",
		"base_url":    srv.URL,
		"max_tokens":  600,
		"temperature": 0.7,
	})
	require.NoError(t, err)

	answer, err := p.Generate(context.Background(), "test-model", "where to eat pho?")
	require.NoError(t, err)
	require.Equal(t, "Pho is best in Hanoi.", answer)
	require.Equal(t, "test-model", got.Model)
	require.Equal(t, 600, got.MaxTokens)
	require.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 1)
	require.Equal(t, "user", got.Messages[0].Role)
}

func TestOpenRouterGenerate_StatusErrorCarriesCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	p, err := NewProvider("openrouter", map[string]interface{}{
		"api_key":  "test-key",
		"base_url": srv.URL,
	})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), "test-model", "hello")
	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestOpenRouterGenerate_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	p, err := NewProvider("openrouter", map[string]interface{}{
		"api_key":  "test-key",
		"base_url": srv.URL,
	})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), "test-model", "hello")
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenRouterGenerate_MissingKey(t *testing.T) {
	p, err := NewProvider("openrouter", map[string]interface{}{})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), "test-model", "hello")
	require.ErrorIs(t, err, ErrUnavailable)
}
