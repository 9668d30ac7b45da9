package objectstore

import (
	"context"
	"errors"
)

// Client is the external storage capability consumed by the workflow.
// Every operation is best-effort from the caller's point of view: the
// database stays the source of truth and storage errors must never roll
// back local state.
type Client interface {
	// CreateFolder provisions a deal-scoped folder and returns its handle.
	CreateFolder(ctx context.Context, name string) (string, error)
	// Upload places a staged local file under folder/remoteName.
	Upload(ctx context.Context, folder, localPath, remoteName string) error
	// Publish makes the folder reachable and returns its public URL.
	Publish(ctx context.Context, folder string) (string, error)
}

// ErrDisabled is returned by the no-op client used when no storage
// endpoint is configured.
var ErrDisabled = errors.New("object storage is not configured")

// Disabled satisfies Client when the deployment runs without external
// storage; callers log and continue.
type Disabled struct{}

func (Disabled) CreateFolder(ctx context.Context, name string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) Upload(ctx context.Context, folder, localPath, remoteName string) error {
	return ErrDisabled
}

func (Disabled) Publish(ctx context.Context, folder string) (string, error) {
	return "", ErrDisabled
}
