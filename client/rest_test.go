package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/stratus/model"
)

func newTestPlatform(t *testing.T) *REST {
	t.Helper()
	handler := http.NewServeMux()
	handler.HandleFunc("/executions", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(apiKeyHeader) != "key-1" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"errorCode": 8002, "errorMessage": "bad credentials",
			})
			return
		}
		var request map[string]interface{}
		json.NewDecoder(r.Body).Decode(&request)
		if request["pipelineIdentifier"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"errorCode": 8000, "errorMessage": "no pipeline",
			})
			return
		}
		json.NewEncoder(w).Encode(Execution{Identifier: "exec-1", Status: model.StatusRunning})
	})
	handler.HandleFunc("/executions/count", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("42"))
	})
	handler.HandleFunc("/executions/exec-1/stdout", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("computing\n"))
	})
	handler.HandleFunc("/path/vip/Home/a.txt", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Query().Get("action") == "exists":
			json.NewEncoder(w).Encode(map[string]bool{"exists": true})
		case r.Method == http.MethodGet && r.URL.Query().Get("action") == "content":
			w.Write([]byte("payload"))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	rest, err := NewREST(server.URL, "key-1")
	assert.Nil(t, err)
	return rest
}

func TestRESTSubmit(t *testing.T) {
	ctx := context.Background()
	rest := newTestPlatform(t)

	id, err := rest.Submit(ctx, "demo/0.1", "run-a", map[string]interface{}{"file": "f"}, "/vip/Home/OUT")
	assert.Nil(t, err)
	assert.EqualValues(t, "exec-1", id)

	_, err = rest.Submit(ctx, "", "run-a", nil, "")
	assert.True(t, IsBadInput(err))
}

func TestRESTAuthEnvelope(t *testing.T) {
	ctx := context.Background()
	rest := newTestPlatform(t)
	rest.apiKey = "wrong"

	_, err := rest.Submit(ctx, "demo/0.1", "run-a", nil, "")
	assert.True(t, IsAuth(err))
}

func TestRESTPathOperations(t *testing.T) {
	ctx := context.Background()
	rest := newTestPlatform(t)

	ok, err := rest.Exists(ctx, "/vip/Home/a.txt")
	assert.Nil(t, err)
	assert.True(t, ok)

	local := filepath.Join(t.TempDir(), "a.txt")
	assert.Nil(t, rest.Download(ctx, "/vip/Home/a.txt", local))
	data, err := os.ReadFile(local)
	assert.Nil(t, err)
	assert.EqualValues(t, "payload", string(data))
}

func TestRESTTextEndpoints(t *testing.T) {
	ctx := context.Background()
	rest := newTestPlatform(t)

	count, err := rest.ExecutionCount(ctx)
	assert.Nil(t, err)
	assert.EqualValues(t, 42, count)

	stdout, err := rest.Stdout(ctx, "exec-1")
	assert.Nil(t, err)
	assert.EqualValues(t, "computing\n", stdout)
}
