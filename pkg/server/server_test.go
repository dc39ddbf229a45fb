package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmind-ai/graphmind"
	"github.com/graphmind-ai/graphmind/pkg/config"
	"github.com/graphmind-ai/graphmind/pkg/driver"
	"github.com/graphmind-ai/graphmind/pkg/llm"
	"github.com/graphmind-ai/graphmind/pkg/server"
	"github.com/graphmind-ai/graphmind/pkg/store"
)

type staticClient struct{ response string }

func (c *staticClient) Chat(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	return &llm.Response{Content: c.response}, nil
}

func (c *staticClient) Close() error { return nil }

func newTestServer(t *testing.T) *server.Server {
	t.Helper()

	kv, err := store.NewBadgerStore("")
	require.NoError(t, err)

	service, err := graphmind.NewService(
		driver.NewMemoryStore(), kv, &staticClient{response: "ok"},
		graphmind.SplitterConfig{ChunkSize: 200, Overlap: 40},
		graphmind.Options{Model: "gpt-4o", Workers: 1, QueueBuffer: 8},
		nil,
	)
	require.NoError(t, err)
	t.Cleanup(func() { service.Close(context.Background()) })

	cfg := &config.Config{}
	cfg.Server.Mode = "test"

	srv := server.New(cfg, service)
	srv.Setup()
	return srv
}

func doJSON(t *testing.T, srv *server.Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateAndGetGraph(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/graphs/create", map[string]string{"name": "research"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		GraphID string `json:"graph_id"`
		Name    string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.GraphID)
	assert.Equal(t, "research", created.Name)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/graphs/"+created.GraphID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateGraphRequiresName(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/graphs/create", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMissingGraphReturns404(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/v1/graphs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Error)
}

func TestUploadDocumentEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/graphs/create", map[string]string{"name": "docs"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		GraphID string `json:"graph_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("graph_id", created.GraphID))
	require.NoError(t, mw.WriteField("extract_entities", "false"))
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("Alice met Bob in Berlin."))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var upload struct {
		DocumentID string `json:"document_id"`
		Status     string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &upload))
	assert.NotEmpty(t, upload.DocumentID)
	assert.Equal(t, "queued", upload.Status)

	// The status endpoint must know the document immediately.
	w = doJSON(t, srv, http.MethodGet, "/api/v1/documents/status/"+upload.DocumentID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChatMessageEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/graphs/create", map[string]string{"name": "chat"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		GraphID string `json:"graph_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, srv, http.MethodPost, "/api/v1/chat/message", map[string]string{
		"message":  "hello",
		"graph_id": created.GraphID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var answer struct {
		Response string `json:"response"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &answer))
	assert.Equal(t, "ok", answer.Response)
}

func TestChatMessageMissingGraph(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/chat/message", map[string]string{
		"message":  "hello",
		"graph_id": "missing",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
