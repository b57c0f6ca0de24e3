package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeOpenAI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat/completions":
			if body["model"] != "modelo-teste" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"message":"modelo desconhecido","type":"invalid_request_error"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":0,"model":"modelo-teste",
				"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  Nota sugerida. "}}]}`))
		case "/embeddings":
			_, _ = w.Write([]byte(`{"object":"list","model":"emb","usage":{"prompt_tokens":1,"total_tokens":1},
				"data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClientComplete(t *testing.T) {
	srv := newFakeOpenAI(t)
	c := NewOpenAIClient(OpenAIConfig{ApiKey: "k", BaseURL: srv.URL, Model: "modelo-teste"})

	text, err := c.Complete(context.Background(), "instruções", "entrada")
	require.NoError(t, err)
	assert.Equal(t, "Nota sugerida.", text)

	bad := NewOpenAIClient(OpenAIConfig{ApiKey: "k", BaseURL: srv.URL, Model: "outro"})
	_, err = bad.Complete(context.Background(), "instruções", "entrada")
	assert.Error(t, err)
}

func TestOpenAIClientEmbed(t *testing.T) {
	srv := newFakeOpenAI(t)
	c := NewOpenAIClient(OpenAIConfig{ApiKey: "k", BaseURL: srv.URL})

	v, err := c.Embed(context.Background(), "texto")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.25}, v)
}
