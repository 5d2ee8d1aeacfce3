package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// IPFSBackend keeps content in the node's mutable file system (MFS) under
// root, so items stay addressable by content id and pinned by the node.
type IPFSBackend struct {
	shell *shell.Shell
	addr  string
	root  string
	log   *slog.Logger
}

func NewIPFSBackend(addr, root string, timeout time.Duration, log *slog.Logger) *IPFSBackend {
	sh := shell.NewShell(addr)
	if timeout > 0 {
		sh.SetTimeout(timeout)
	}
	if root == "" {
		root = "/provenance"
	}
	return &IPFSBackend{shell: sh, addr: addr, root: "/" + strings.Trim(root, "/"), log: log}
}

func (b *IPFSBackend) mfsPath(id interfaces.ContentID, contentType interfaces.ContentType) string {
	return path.Join(b.root, objectName(id, contentType))
}

func (b *IPFSBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	r, err := b.shell.FilesRead(ctx, b.mfsPath(id, contentType))
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return nil, interfaces.ErrContentNotFound
		}
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read from IPFS: %w", err)
	}
	if err := verifyContent(id, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (b *IPFSBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	target := b.mfsPath(id, contentType)
	err := b.shell.FilesWrite(ctx, target, bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return id, fmt.Errorf("failed to write to IPFS: %w", err)
	}

	stat, err := b.shell.FilesStat(ctx, target)
	if err == nil {
		b.log.Debug("Stored content in IPFS", "path", target, "cid", stat.Hash)
	}
	return id, nil
}

func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

func (b *IPFSBackend) Name() string {
	return "ipfs-" + b.addr
}

func (b *IPFSBackend) LocationURI() string {
	return fmt.Sprintf("ipfs://%s%s", b.addr, b.root)
}
