package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// VaultBackend stores content in a KV version 2 secrets engine. Vault is
// used for archives that must not be publicly readable.
type VaultBackend struct {
	client *api.Client
	mount  string
	prefix string
	log    *slog.Logger
}

// NewVaultBackend connects to address. An empty token falls back to the
// client's environment configuration (VAULT_TOKEN).
func NewVaultBackend(address, token, mount, prefix string, log *slog.Logger) (*VaultBackend, error) {
	cfg := api.DefaultConfig()
	cfg.Address = address
	cfg.Timeout = 30 * time.Second

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}
	if mount == "" {
		mount = "secret"
	}
	return &VaultBackend{
		client: client,
		mount:  strings.Trim(mount, "/"),
		prefix: strings.Trim(prefix, "/"),
		log:    log,
	}, nil
}

func (b *VaultBackend) dataPath(id interfaces.ContentID, contentType interfaces.ContentType) string {
	return path.Join(b.mount, "data", b.prefix, objectName(id, contentType))
}

func (b *VaultBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	secret, err := b.client.Logical().ReadWithContext(ctx, b.dataPath(id, contentType))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, interfaces.ErrContentNotFound
	}

	fields, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, interfaces.ErrContentNotFound
	}
	encoded, ok := fields["content"].(string)
	if !ok {
		return nil, fmt.Errorf("vault entry for %s has no content", id)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode vault content: %w", err)
	}
	if err := verifyContent(id, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (b *VaultBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	_, err := b.client.Logical().WriteWithContext(ctx, b.dataPath(id, contentType), map[string]any{
		"data": map[string]any{
			"content": base64.StdEncoding.EncodeToString(data),
		},
	})
	if err != nil {
		return id, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	b.log.Debug("Stored content in Vault", "contentID", id.String(), "type", contentType.String())
	return id, nil
}

func (b *VaultBackend) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		b.log.Debug("Vault health check failed", "err", err)
		return false
	}
	return health.Initialized && !health.Sealed
}

func (b *VaultBackend) Name() string {
	return "vault-" + b.mount
}

func (b *VaultBackend) LocationURI() string {
	return fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(strings.TrimPrefix(b.client.Address(), "https://"), "http://"), b.mount, b.prefix)
}
