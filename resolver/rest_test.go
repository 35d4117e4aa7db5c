package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestStore(t *testing.T) (*httptest.Server, *REST) {
	t.Helper()
	handler := http.NewServeMux()
	handler.HandleFunc("/resource/lookup", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Girder-Token") != "tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Query().Get("path") {
		case "/collection/study/scan.nii":
			json.NewEncoder(w).Encode(map[string]string{"_id": "f-1", "_modelType": "file"})
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"Path not found"}`))
		}
	})
	handler.HandleFunc("/item/i-1/files", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{{"_id": "f-2"}})
	})
	handler.HandleFunc("/folder/d-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"_id": "d-1", "_modelType": "folder",
			"meta": map[string]interface{}{"session_name": "study-7"},
		})
	})
	handler.HandleFunc("/folder", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if r.Method != http.MethodPost || query.Get("parentId") != "d-1" ||
			query.Get("parentType") != "folder" || query.Get("reuseExisting") != "true" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"_id": "d-2", "_modelType": "folder"})
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	store, err := NewREST(server.URL, "tok-1")
	assert.Nil(t, err)
	return server, store
}

func TestRESTResolve(t *testing.T) {
	ctx := context.Background()
	_, store := newTestStore(t)

	ref, err := store.Resolve(ctx, "/collection/study/scan.nii")
	assert.Nil(t, err)
	assert.EqualValues(t, &Ref{ID: "f-1", Kind: KindFile}, ref)

	_, err = store.Resolve(ctx, "/collection/absent")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRESTFilesAndMetadata(t *testing.T) {
	ctx := context.Background()
	_, store := newTestStore(t)

	files, err := store.Files(ctx, "i-1")
	assert.Nil(t, err)
	assert.EqualValues(t, []string{"f-2"}, files)

	meta, err := store.Metadata(ctx, "d-1")
	assert.Nil(t, err)
	assert.EqualValues(t, "study-7", meta["session_name"])
}

func TestRESTCreateFolder(t *testing.T) {
	ctx := context.Background()
	_, store := newTestStore(t)

	id, err := store.CreateFolder(ctx, "d-1", "2024-05-01_12:00:00", "")
	assert.Nil(t, err)
	assert.EqualValues(t, "d-2", id)

	_, err = store.CreateFolder(ctx, "other", "x", "")
	assert.NotNil(t, err, "the store rejected the parent")
}
