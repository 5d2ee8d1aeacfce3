package interfaces

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
)

// ContentID addresses archived content: the SHA-256 of its bytes.
type ContentID [32]byte

func NewContentIDFromHex(s string) (ContentID, error) {
	var id ContentID
	if err := decodeFixedHex(s, id[:]); err != nil {
		return ContentID{}, fmt.Errorf("content id: %w", err)
	}
	return id, nil
}

func ComputeID(data []byte) ContentID {
	return ContentID(sha256.Sum256(data))
}

func (id ContentID) String() string { return hex.EncodeToString(id[:]) }

// ManifestHash returns the lowercase hex SHA-256 of a manifest, the key
// certificates are deduplicated on. It equals ComputeID(manifest).String(),
// so a manifest's storage id and manifest hash coincide.
func ManifestHash(manifest []byte) string {
	return ComputeID(manifest).String()
}

// ContentType namespaces archived content.
type ContentType int

const (
	BlobType ContentType = iota
	ManifestType
)

func (ct ContentType) String() string {
	switch ct {
	case BlobType:
		return "blob"
	case ManifestType:
		return "manifest"
	default:
		return "unknown"
	}
}

// ParseContentType is the inverse of ContentType.String. An empty name
// means BlobType.
func ParseContentType(name string) (ContentType, error) {
	switch name {
	case "blob", "":
		return BlobType, nil
	case "manifest":
		return ManifestType, nil
	default:
		return 0, fmt.Errorf("unknown content type %q", name)
	}
}

var (
	ErrContentNotFound    = errors.New("content not found")
	ErrBackendUnavailable = errors.New("storage backend unavailable")
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// StorageBackendLocation is a parsed backend URI of the form
// scheme://[auth@]host[/path][?params].
type StorageBackendLocation struct {
	Raw    string
	Scheme string
	Host   string
	Path   string
	Query  url.Values
	Auth   string
}

var supportedSchemes = map[string]bool{
	"file":   true,
	"s3":     true,
	"ipfs":   true,
	"github": true,
	"vault":  true,
}

func NewStorageBackendLocation(uri string) (StorageBackendLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StorageBackendLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}
	if !supportedSchemes[parsed.Scheme] {
		return StorageBackendLocation{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	loc := StorageBackendLocation{
		Raw:    uri,
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
	}
	if parsed.User != nil {
		loc.Auth = parsed.User.String()
	}
	return loc, nil
}

func (loc StorageBackendLocation) String() string {
	return loc.Raw
}

func (loc StorageBackendLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

func (loc StorageBackendLocation) GetParamBool(name string) bool {
	switch loc.Query.Get(name) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// StorageBackend is a content-addressed store. Store returns the id the
// content can be fetched back under; Fetch fails with ErrContentNotFound
// for unknown ids and ErrBackendUnavailable when the backend cannot be
// reached.
type StorageBackend interface {
	Fetch(ctx context.Context, id ContentID, contentType ContentType) ([]byte, error)
	Store(ctx context.Context, data []byte, contentType ContentType) (ContentID, error)
	Available(ctx context.Context) bool
	// Name identifies the backend in logs.
	Name() string
	LocationURI() string
}

type StorageBackendFactory interface {
	StorageBackendFor(loc StorageBackendLocation) (StorageBackend, error)
	CreateMultiBackend(locs []StorageBackendLocation) (StorageBackend, error)
}
