package storage

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// StorageBackendFactory builds content archive backends from location URIs:
//
//	file:///var/lib/provenance/content
//	s3://[ACCESS:SECRET@]bucket/prefix?region=eu-west-1&endpoint=http://minio:9000&path_style=true
//	ipfs://127.0.0.1:5001/provenance?timeout=30s
//	github://owner/repo/dir?ref=main&token=...
//	vault://[TOKEN@]vault.internal:8200/mount/prefix?tls=false
type StorageBackendFactory struct {
	log *slog.Logger
}

var _ interfaces.StorageBackendFactory = (*StorageBackendFactory)(nil)

func NewStorageBackendFactory(log *slog.Logger) *StorageBackendFactory {
	return &StorageBackendFactory{log: log}
}

func (sf *StorageBackendFactory) StorageBackendFor(loc interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating storage backend", "scheme", loc.Scheme, "host", loc.Host)

	switch loc.Scheme {
	case "file":
		dir := loc.Path
		if loc.Host != "" {
			dir = loc.Host + "/" + strings.TrimPrefix(loc.Path, "/")
		}
		if dir == "" {
			return nil, fmt.Errorf("%w: empty file path", interfaces.ErrInvalidLocationURI)
		}
		return NewFileBackend(dir, sf.log)

	case "s3":
		cfg := S3Config{
			Bucket:    loc.Host,
			Prefix:    loc.Path,
			Region:    loc.GetParam("region"),
			Endpoint:  loc.GetParam("endpoint"),
			PathStyle: loc.GetParamBool("path_style"),
		}
		cfg.AccessKey, cfg.SecretKey = splitAuth(loc.Auth)
		return NewS3Backend(cfg, sf.log)

	case "ipfs":
		timeout := 30 * time.Second
		if raw := loc.GetParam("timeout"); raw != "" {
			parsed, err := time.ParseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: bad timeout: %v", interfaces.ErrInvalidLocationURI, err)
			}
			timeout = parsed
		}
		return NewIPFSBackend(loc.Host, loc.Path, timeout, sf.log), nil

	case "github":
		repo, dir, _ := strings.Cut(strings.TrimPrefix(loc.Path, "/"), "/")
		if loc.Host == "" || repo == "" {
			return nil, fmt.Errorf("%w: expected github://owner/repo[/dir]", interfaces.ErrInvalidLocationURI)
		}
		return NewGitHubBackend(loc.Host, repo, dir, loc.GetParam("ref"), loc.GetParam("token"), sf.log), nil

	case "vault":
		mount, prefix, _ := strings.Cut(strings.TrimPrefix(loc.Path, "/"), "/")
		scheme := "https"
		if loc.Query.Has("tls") && !loc.GetParamBool("tls") {
			scheme = "http"
		}
		token, _ := splitAuth(loc.Auth)
		return NewVaultBackend(scheme+"://"+loc.Host, token, mount, prefix, sf.log)
	}

	return nil, fmt.Errorf("%w: unsupported scheme %q", interfaces.ErrInvalidLocationURI, loc.Scheme)
}

// CreateMultiBackend skips locations that cannot be built and fails only
// when none can.
func (sf *StorageBackendFactory) CreateMultiBackend(locs []interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	backends := make([]interfaces.StorageBackend, 0, len(locs))
	for _, loc := range locs {
		backend, err := sf.StorageBackendFor(loc)
		if err != nil {
			sf.log.Warn("Failed to create storage backend", "location", loc.String(), "err", err)
			continue
		}
		backends = append(backends, backend)
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid storage backends created")
	}
	return NewMultiStorageBackend(backends, sf.log), nil
}

func splitAuth(auth string) (string, string) {
	user, pass, _ := strings.Cut(auth, ":")
	return user, pass
}
