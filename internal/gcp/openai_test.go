package gcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/Lllllllleong/pdfqaflow/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_Complete(t *testing.T) {
	t.Parallel()

	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  [{\"question\":\"q\",\"answer\":\"a\"}] "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(srv.URL+"/v1/", "sk-test", "deepseek-chat", 0.7, time.Second)
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), models.CompletionRequest{Prompt: "hello", Format: models.FormatJSON})
	require.NoError(t, err)
	assert.Equal(t, `[{"question":"q","answer":"a"}]`, text)

	assert.Equal(t, "deepseek-chat", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "hello", got.Messages[1].Content)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestOpenAIClient_ModelOverride(t *testing.T) {
	t.Parallel()

	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(srv.URL, "k", "deepseek-chat", 0, time.Second)
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), models.CompletionRequest{Prompt: "p", Model: "deepseek-reasoner"})
	require.NoError(t, err)
	assert.Equal(t, "deepseek-reasoner", got.Model)
	assert.Nil(t, got.ResponseFormat)
}

func TestOpenAIClient_ErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   retry.Kind
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, retry.KindRecoverable},
		{"server error", http.StatusBadGateway, `bad gateway`, retry.KindRecoverable},
		{"timeout", http.StatusRequestTimeout, ``, retry.KindRecoverable},
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad key"}`, retry.KindFatal},
		{"bad request", http.StatusBadRequest, `{"error":"bad"}`, retry.KindFatal},
		{"garbage body", http.StatusOK, `not json`, retry.KindParse},
		{"no choices", http.StatusOK, `{"choices":[]}`, retry.KindParse},
		{"filtered", http.StatusOK, `{"choices":[{"message":{"content":""},"finish_reason":"content_filter"}]}`, retry.KindFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewOpenAIClient(srv.URL, "k", "m", 0, time.Second)
			require.NoError(t, err)
			_, err = c.Complete(context.Background(), models.CompletionRequest{Prompt: "p"})
			require.Error(t, err)
			assert.Equal(t, tt.want, retry.KindOf(err))
		})
	}
}

func TestOpenAIClient_TransportFailureIsRecoverable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewOpenAIClient(url, "k", "m", 0, time.Second)
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), models.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, retry.KindRecoverable, retry.KindOf(err))
}

func TestNewOpenAIClient_MissingKey(t *testing.T) {
	t.Parallel()

	_, err := NewOpenAIClient("", "", "m", 0, 0)
	require.Error(t, err)
	assert.Equal(t, retry.KindInvalidInput, retry.KindOf(err))
}

func TestNewModelClient_UnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := NewModelClient(context.Background(), ModelOptions{Backend: "llama"})
	assert.Error(t, err)
}
