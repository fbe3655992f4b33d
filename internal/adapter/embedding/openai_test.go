package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// fakeEmbeddings serves /v1/embeddings, answering each input i with a vector
// whose first element is len(input i). Data entries are returned in reverse.
func fakeEmbeddings(t *testing.T, dim int, batches *[][]string, fail func(call int32) int) *httptest.Server {
	t.Helper()
	var calls atomic.Int32
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := calls.Add(1)
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		if fail != nil {
			if status := fail(call); status != 0 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"server_error"}}`))
				return
			}
		}

		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if batches != nil {
			*batches = append(*batches, req.Input)
		}

		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]float32, dim)
			vec[0] = float32(len(req.Input[i]))
			data = append(data, map[string]any{"object": "embedding", "index": i, "embedding": vec})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func newTestEmbedder(t *testing.T, srv *httptest.Server, dim, batch int) *OpenAIEmbedder {
	t.Helper()
	e, err := NewOpenAIEmbedder(Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL + "/v1",
		Model:      "text-embedding-3-small",
		Dimension:  dim,
		BatchSize:  batch,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	return e
}

func TestOpenAIEmbedder_BatchesAndOrders(t *testing.T) {
	var batches [][]string
	srv := fakeEmbeddings(t, 4, &batches, nil)
	defer srv.Close()

	e := newTestEmbedder(t, srv, 4, 2)
	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}

	vectors, err := e.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	for i, v := range vectors {
		assert.Len(t, v, 4)
		assert.Equal(t, float32(len(texts[i])), v[0], "vector %d out of order", i)
	}
	assert.Equal(t, [][]string{{"a", "bb"}, {"ccc", "dddd"}, {"eeeee"}}, batches)
}

func TestOpenAIEmbedder_Empty(t *testing.T) {
	srv := fakeEmbeddings(t, 4, nil, nil)
	defer srv.Close()

	vectors, err := newTestEmbedder(t, srv, 4, 10).Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestOpenAIEmbedder_RetriesServerErrors(t *testing.T) {
	srv := fakeEmbeddings(t, 3, nil, func(call int32) int {
		if call == 1 {
			return http.StatusServiceUnavailable
		}
		return 0
	})
	defer srv.Close()

	vectors, err := newTestEmbedder(t, srv, 3, 10).Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
}

func TestOpenAIEmbedder_DoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := fakeEmbeddings(t, 3, nil, func(call int32) int {
		attempts.Add(1)
		return http.StatusBadRequest
	})
	defer srv.Close()

	_, err := newTestEmbedder(t, srv, 3, 10).Embed(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestOpenAIEmbedder_WidthMismatch(t *testing.T) {
	srv := fakeEmbeddings(t, 8, nil, nil)
	defer srv.Close()

	_, err := newTestEmbedder(t, srv, 4, 10).Embed(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "width 8")
}

func TestNewOpenAIEmbedder_Validation(t *testing.T) {
	_, err := NewOpenAIEmbedder(Config{Model: "m", Dimension: 4})
	assert.Error(t, err, "missing key")

	_, err = NewOpenAIEmbedder(Config{APIKey: "k", Dimension: 4})
	assert.Error(t, err, "missing model")

	_, err = NewOpenAIEmbedder(Config{APIKey: "k", Model: "m"})
	assert.Error(t, err, "missing dimension")
}
