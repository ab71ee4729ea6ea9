package filehost

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Geometrically/fabricate/internal/observability"

	"github.com/google/uuid"
)

// LocalHost stores blobs on the local filesystem under a base directory,
// mirroring the key hierarchy. It backs development and single-node
// deployments where the CDN fronts the same disk.
type LocalHost struct {
	basePath string
}

// NewLocalHost returns a LocalHost rooted at basePath, creating it if needed.
func NewLocalHost(basePath string) (*LocalHost, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create file host directory: %w", err)
	}
	return &LocalHost{basePath: basePath}, nil
}

// Upload writes data under key, creating intermediate directories.
func (h *LocalHost) Upload(ctx context.Context, contentType, key string, data []byte) (*UploadedFile, error) {
	clean, err := h.resolve(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	// Write to a temp file and rename so a concurrent reader never sees a
	// partially written blob.
	tmp := clean + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write blob %s: %w", key, err)
	}
	if err := os.Rename(tmp, clean); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("failed to write blob %s: %w", key, err)
	}

	observability.FileHostBytes.Add(float64(len(data)))

	return &UploadedFile{
		FileID:   uuid.NewString(),
		FileName: key,
	}, nil
}

// Delete removes the blob stored under fileName. Missing blobs are ignored.
func (h *LocalHost) Delete(ctx context.Context, fileID, fileName string) error {
	clean, err := h.resolve(fileName)
	if err != nil {
		return err
	}
	if err := os.Remove(clean); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob %s: %w", fileName, err)
	}
	return nil
}

// resolve maps a key to an absolute path and rejects traversal outside the
// base directory.
func (h *LocalHost) resolve(key string) (string, error) {
	clean := filepath.Join(h.basePath, filepath.FromSlash(key))
	base, err := filepath.Abs(h.basePath)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		return "", err
	}
	if abs != base && !strings.HasPrefix(abs, base+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return abs, nil
}
