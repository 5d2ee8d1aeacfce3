package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/tee-provenance-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend, err := NewFileBackend(dir, discardLogger())
	require.NoError(t, err)
	require.True(t, backend.Available(ctx))

	data := []byte("hello archive")
	id, err := backend.Store(ctx, data, interfaces.BlobType)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeID(data), id)
	assert.FileExists(t, filepath.Join(dir, "blob", id.String()))

	got, err := backend.Fetch(ctx, id, interfaces.BlobType)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = backend.Fetch(ctx, id, interfaces.ManifestType)
	require.ErrorIs(t, err, interfaces.ErrContentNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "blob", id.String()), []byte("tampered"), 0o644))
	_, err = backend.Fetch(ctx, id, interfaces.BlobType)
	require.ErrorContains(t, err, "mismatch")
}

func TestGitHubBackend(t *testing.T) {
	ctx := context.Background()
	data := []byte(`{"name":"mirrored manifest"}`)
	id := interfaces.ComputeID(data)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/archive":
			w.WriteHeader(http.StatusOK)
		case "/repos/acme/archive/contents/content/manifest/" + id.String():
			assert.Equal(t, "main", r.URL.Query().Get("ref"))
			json.NewEncoder(w).Encode(githubContent{
				Content:  base64.StdEncoding.EncodeToString(data),
				Encoding: "base64",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	backend := NewGitHubBackend("acme", "archive", "content", "main", "", discardLogger())
	backend.baseURL = srv.URL

	require.True(t, backend.Available(ctx))
	got, err := backend.Fetch(ctx, id, interfaces.ManifestType)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = backend.Fetch(ctx, id, interfaces.BlobType)
	require.ErrorIs(t, err, interfaces.ErrContentNotFound)

	_, err = backend.Store(ctx, data, interfaces.BlobType)
	require.ErrorIs(t, err, ErrReadOnly)
}

func TestFactory(t *testing.T) {
	factory := NewStorageBackendFactory(discardLogger())
	dir := t.TempDir()

	tests := []struct {
		uri  string
		name string
	}{
		{"file://" + dir, "file-" + filepath.Base(dir)},
		{"s3://key:secret@bucket/archive?region=eu-west-1&endpoint=http://127.0.0.1:9000&path_style=true", "s3-bucket"},
		{"ipfs://127.0.0.1:5001/provenance?timeout=5s", "ipfs-127.0.0.1:5001"},
		{"github://acme/archive/content?ref=main", "github-acme-archive"},
		{"vault://token@127.0.0.1:8200/secret/provenance?tls=false", "vault-secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := interfaces.NewStorageBackendLocation(tt.uri)
			require.NoError(t, err)
			backend, err := factory.StorageBackendFor(loc)
			require.NoError(t, err)
			assert.Equal(t, tt.name, backend.Name())
		})
	}

	t.Run("invalid", func(t *testing.T) {
		loc, err := interfaces.NewStorageBackendLocation("github://acme")
		require.NoError(t, err)
		_, err = factory.StorageBackendFor(loc)
		require.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)

		_, err = interfaces.NewStorageBackendLocation("onchain://0x00")
		require.Error(t, err)
	})

	t.Run("multi", func(t *testing.T) {
		good, err := interfaces.NewStorageBackendLocation("file://" + dir)
		require.NoError(t, err)
		bad, err := interfaces.NewStorageBackendLocation("ipfs://127.0.0.1:5001/?timeout=never")
		require.NoError(t, err)

		backend, err := factory.CreateMultiBackend([]interfaces.StorageBackendLocation{bad, good})
		require.NoError(t, err)
		assert.Equal(t, "multi-storage", backend.Name())

		_, err = factory.CreateMultiBackend([]interfaces.StorageBackendLocation{bad})
		require.Error(t, err)
	})
}
