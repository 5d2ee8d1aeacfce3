package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ruteri/tee-provenance-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStorageBackend implements interfaces.StorageBackend for testing
type MockStorageBackend struct {
	mock.Mock
	name string
}

func (m *MockStorageBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	args := m.Called(ctx, id, contentType)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockStorageBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	args := m.Called(ctx, data, contentType)
	return args.Get(0).(interfaces.ContentID), args.Error(1)
}

func (m *MockStorageBackend) Available(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *MockStorageBackend) Name() string {
	return m.name
}

func (m *MockStorageBackend) LocationURI() string {
	return "mock://" + m.name
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func backendMock(name string, available bool) *MockStorageBackend {
	m := &MockStorageBackend{name: name}
	m.On("Available", mock.Anything).Return(available).Maybe()
	return m
}

func TestMultiStorageBackend_Available(t *testing.T) {
	tests := []struct {
		name      string
		available []bool
		expected  bool
	}{
		{"all available", []bool{true, true}, true},
		{"one available", []bool{false, true, false}, true},
		{"none available", []bool{false, false}, false},
		{"no backends", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var backends []interfaces.StorageBackend
			for i, available := range tt.available {
				backends = append(backends, backendMock(string(rune('a'+i)), available))
			}
			multi := NewMultiStorageBackend(backends, discardLogger())
			assert.Equal(t, tt.expected, multi.Available(context.Background()))
		})
	}
}

func TestMultiStorageBackend_Fetch(t *testing.T) {
	data := []byte("archived body")
	id := interfaces.ComputeID(data)
	boom := errors.New("connection reset")

	t.Run("falls through missing and unavailable backends", func(t *testing.T) {
		down := backendMock("down", false)
		missing := backendMock("missing", true)
		missing.On("Fetch", mock.Anything, id, interfaces.BlobType).Return(nil, interfaces.ErrContentNotFound)
		holder := backendMock("holder", true)
		holder.On("Fetch", mock.Anything, id, interfaces.BlobType).Return(data, nil)

		multi := NewMultiStorageBackend([]interfaces.StorageBackend{down, missing, holder}, discardLogger())
		got, err := multi.Fetch(context.Background(), id, interfaces.BlobType)
		require.NoError(t, err)
		assert.Equal(t, data, got)
		down.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not found everywhere", func(t *testing.T) {
		missing := backendMock("missing", true)
		missing.On("Fetch", mock.Anything, id, interfaces.BlobType).Return(nil, interfaces.ErrContentNotFound)

		multi := NewMultiStorageBackend([]interfaces.StorageBackend{missing}, discardLogger())
		_, err := multi.Fetch(context.Background(), id, interfaces.BlobType)
		require.ErrorIs(t, err, interfaces.ErrContentNotFound)
	})

	t.Run("backend failures are reported", func(t *testing.T) {
		broken := backendMock("broken", true)
		broken.On("Fetch", mock.Anything, id, interfaces.BlobType).Return(nil, boom)

		multi := NewMultiStorageBackend([]interfaces.StorageBackend{broken}, discardLogger())
		_, err := multi.Fetch(context.Background(), id, interfaces.BlobType)
		require.ErrorIs(t, err, boom)
	})

	t.Run("nothing available", func(t *testing.T) {
		multi := NewMultiStorageBackend([]interfaces.StorageBackend{backendMock("down", false)}, discardLogger())
		_, err := multi.Fetch(context.Background(), id, interfaces.BlobType)
		require.ErrorIs(t, err, interfaces.ErrBackendUnavailable)
	})
}

func TestMultiStorageBackend_Store(t *testing.T) {
	data := []byte(`{"name":"manifest"}`)
	id := interfaces.ComputeID(data)

	t.Run("partial success", func(t *testing.T) {
		ok := backendMock("ok", true)
		ok.On("Store", mock.Anything, data, interfaces.ManifestType).Return(id, nil).Once()
		readOnly := backendMock("mirror", true)
		readOnly.On("Store", mock.Anything, data, interfaces.ManifestType).Return(id, ErrReadOnly).Once()
		broken := backendMock("broken", true)
		broken.On("Store", mock.Anything, data, interfaces.ManifestType).Return(id, errors.New("disk full")).Once()

		multi := NewMultiStorageBackend([]interfaces.StorageBackend{readOnly, broken, ok}, discardLogger())
		got, err := multi.Store(context.Background(), data, interfaces.ManifestType)
		require.NoError(t, err)
		assert.Equal(t, id, got)
		ok.AssertExpectations(t)
	})

	t.Run("all fail", func(t *testing.T) {
		broken := backendMock("broken", true)
		broken.On("Store", mock.Anything, data, interfaces.ManifestType).Return(id, errors.New("disk full"))

		multi := NewMultiStorageBackend([]interfaces.StorageBackend{broken}, discardLogger())
		_, err := multi.Store(context.Background(), data, interfaces.ManifestType)
		require.ErrorContains(t, err, "disk full")
	})

	t.Run("read-only only", func(t *testing.T) {
		readOnly := backendMock("mirror", true)
		readOnly.On("Store", mock.Anything, data, interfaces.ManifestType).Return(id, ErrReadOnly)

		multi := NewMultiStorageBackend([]interfaces.StorageBackend{readOnly}, discardLogger())
		_, err := multi.Store(context.Background(), data, interfaces.ManifestType)
		require.ErrorIs(t, err, interfaces.ErrBackendUnavailable)
	})
}
