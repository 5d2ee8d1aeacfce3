package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// MultiStorageBackend fans writes out to every available backend and reads
// from the first backend that has the content.
type MultiStorageBackend struct {
	backends []interfaces.StorageBackend
	log      *slog.Logger
}

func NewMultiStorageBackend(backends []interfaces.StorageBackend, log *slog.Logger) *MultiStorageBackend {
	if log == nil {
		log = slog.Default()
	}
	return &MultiStorageBackend{backends: backends, log: log}
}

func (m *MultiStorageBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	var errs []error
	notFound := 0
	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Skipping unavailable backend", "backend", backend.Name())
			continue
		}
		data, err := backend.Fetch(ctx, id, contentType)
		if err == nil {
			return data, nil
		}
		if errors.Is(err, interfaces.ErrContentNotFound) {
			notFound++
			continue
		}
		m.log.Warn("Backend fetch failed", "backend", backend.Name(), "contentID", id.String(), "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
	}

	if len(errs) == 0 {
		if notFound == 0 {
			return nil, interfaces.ErrBackendUnavailable
		}
		return nil, interfaces.ErrContentNotFound
	}
	return nil, errors.Join(errs...)
}

// Store succeeds when at least one backend accepted the content.
func (m *MultiStorageBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	stored := 0
	var errs []error
	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			continue
		}
		if _, err := backend.Store(ctx, data, contentType); err != nil {
			if !errors.Is(err, ErrReadOnly) {
				errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			}
			continue
		}
		stored++
	}

	if stored == 0 {
		if len(errs) == 0 {
			return id, interfaces.ErrBackendUnavailable
		}
		return id, errors.Join(errs...)
	}
	if len(errs) > 0 {
		m.log.Warn("Content stored on a subset of backends", "contentID", id.String(), "stored", stored, "err", errors.Join(errs...))
	}
	return id, nil
}

func (m *MultiStorageBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

func (m *MultiStorageBackend) Name() string {
	return "multi-storage"
}

func (m *MultiStorageBackend) LocationURI() string {
	locations := make([]string, 0, len(m.backends))
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}
	return "multi:[" + strings.Join(locations, ",") + "]"
}
