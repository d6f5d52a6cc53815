package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{0.1, 0.2, 0.3}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "embed-model", "chat-model", "embed-key")
	vec, err := client.Embed(context.Background(), "Career: Data Scientist")
	require.NoError(t, err)

	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "Bearer embed-key", gotAuth)
	assert.Equal(t, "embed-model", gotBody["model"])
	assert.Equal(t, "Career: Data Scientist", gotBody["input"])
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{1}},
				{"embedding": []float32{2}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "embed-model", "chat-model", "")
	vectors, err := client.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1}, vectors[0])
	assert.Equal(t, []float32{2}, vectors[1])
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{1}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "embed-model", "chat-model", "")
	_, err := client.EmbedBatch(context.Background(), []string{"first", "second"})
	assert.ErrorContains(t, err, "count mismatch")
}

func TestEmbed_EmptyInput(t *testing.T) {
	client := NewClient("http://unused", "embed-model", "chat-model", "")

	_, err := client.Embed(context.Background(), "   ")
	assert.Error(t, err)

	_, err = client.EmbedBatch(context.Background(), []string{"ok", ""})
	assert.Error(t, err)
}

func TestComplete(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "Consider data science."}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "embed-model", "chat-model", "embed-key")
	text, err := client.Complete(context.Background(), "caller-key", "recommend a career")
	require.NoError(t, err)

	assert.Equal(t, "Consider data science.", text)
	// The chat credential is per call, not the embedding key.
	assert.Equal(t, "Bearer caller-key", gotAuth)
	assert.Equal(t, "chat-model", gotBody["model"])
}

func TestComplete_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "embed-model", "chat-model", "")
	_, err := client.Complete(context.Background(), "key", "prompt")
	require.Error(t, err)
	assert.ErrorContains(t, err, "429")
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "embed-model", "chat-model", "")
	_, err := client.Complete(context.Background(), "key", "prompt")
	assert.ErrorContains(t, err, "choices")
}
