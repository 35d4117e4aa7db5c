package session

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/viant/stratus/client"
	"github.com/viant/stratus/resolver"
)

// deleteCheckInterval is how often a deleted path is re-probed until it
// disappears.
const deleteCheckInterval = 2 * time.Second

// ErrUnsupported marks an operation the session's storage backend does not
// provide; a content store keeps its data and never deletes it.
var ErrUnsupported = errors.New("operation not supported by the storage backend")

// Storage is the remote-side capability a session operates through: probing
// and preparing directories, reclaiming paths and moving files. The platform
// client satisfies it directly; a content-management store plugs in through
// ContentStorage.
type Storage interface {
	// Exists checks a remote path.
	Exists(ctx context.Context, path string) (bool, error)

	// CreateDir creates a single remote directory level.
	CreateDir(ctx context.Context, path string) error

	// Delete removes a remote path with all its content.
	Delete(ctx context.Context, path string) error

	// List returns the direct children of a remote directory.
	List(ctx context.Context, path string) ([]*client.PathItem, error)

	// Upload copies a local file to a remote path.
	Upload(ctx context.Context, localPath, remotePath string) error

	// Download copies a remote file to a local path.
	Download(ctx context.Context, remotePath, localPath string) error
}

// ContentStorage adapts a content-management store to the session storage
// capability. Folders can be probed and created; the store owns its data, so
// deletion and file transfers report ErrUnsupported.
type ContentStorage struct {
	store resolver.Service
}

// NewContentStorage creates the storage capability over a content store.
func NewContentStorage(store resolver.Service) *ContentStorage {
	return &ContentStorage{store: store}
}

func (c *ContentStorage) Exists(ctx context.Context, aPath string) (bool, error) {
	if _, err := c.store.Resolve(ctx, aPath); err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateDir creates one folder level. The parent has to exist and be a
// folder; an existing folder at the path is reused.
func (c *ContentStorage) CreateDir(ctx context.Context, aPath string) error {
	aPath = path.Clean(aPath)
	parent, err := c.store.Resolve(ctx, path.Dir(aPath))
	if err != nil {
		return fmt.Errorf("failed to create %v: %w", aPath, err)
	}
	if parent.Kind != resolver.KindFolder {
		return fmt.Errorf("failed to create %v: parent is a %v, not a folder", aPath, parent.Kind)
	}
	if _, err = c.store.CreateFolder(ctx, parent.ID, path.Base(aPath), ""); err != nil {
		return fmt.Errorf("failed to create %v: %w", aPath, err)
	}
	return nil
}

func (c *ContentStorage) Delete(ctx context.Context, aPath string) error {
	return fmt.Errorf("delete %v: %w", aPath, ErrUnsupported)
}

func (c *ContentStorage) List(ctx context.Context, aPath string) ([]*client.PathItem, error) {
	ref, err := c.store.Resolve(ctx, aPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list %v: %w", aPath, err)
	}
	items, err := c.store.Items(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %v: %w", aPath, err)
	}
	ret := make([]*client.PathItem, 0, len(items))
	for _, item := range items {
		itemPath, err := c.store.Path(ctx, item)
		if err != nil {
			return nil, err
		}
		ret = append(ret, &client.PathItem{Path: itemPath})
	}
	return ret, nil
}

func (c *ContentStorage) Upload(ctx context.Context, localPath, remotePath string) error {
	return fmt.Errorf("upload to %v: %w", remotePath, ErrUnsupported)
}

func (c *ContentStorage) Download(ctx context.Context, remotePath, localPath string) error {
	return fmt.Errorf("download of %v: %w", remotePath, ErrUnsupported)
}

// Mkdirs creates a remote directory with its missing ancestors, top-down
// one level at a time. A level that already exists is fine; two resumed
// processes may race on the same path.
func Mkdirs(ctx context.Context, storage Storage, remotePath string) error {
	remotePath = path.Clean(remotePath)
	if remotePath == "/" || remotePath == "." {
		return nil
	}
	segments := strings.Split(strings.Trim(remotePath, "/"), "/")
	current := ""
	for _, segment := range segments {
		current += "/" + segment
		ok, err := storage.Exists(ctx, current)
		if err != nil {
			return fmt.Errorf("failed to check %v: %w", current, err)
		}
		if ok {
			continue
		}
		if err = storage.CreateDir(ctx, current); err != nil {
			if ok, probeErr := storage.Exists(ctx, current); probeErr == nil && ok {
				continue
			}
			return fmt.Errorf("failed to create %v: %w", current, err)
		}
	}
	return nil
}

// DeleteAndCheck removes a remote path and polls for its disappearance
// until timeout. Remote deletion is asynchronous, so running out of time
// is reported as confirmed=false, not as an error; the wait budget is
// measured in wall-clock time so slow probes do not extend it.
func DeleteAndCheck(ctx context.Context, storage Storage, remotePath string, timeout time.Duration, clk clock) (bool, error) {
	if err := storage.Delete(ctx, remotePath); err != nil {
		return false, fmt.Errorf("failed to delete %v: %w", remotePath, err)
	}
	deadline := clk.Now().Add(timeout)
	for {
		ok, err := storage.Exists(ctx, remotePath)
		if err != nil {
			return false, fmt.Errorf("failed to check %v after delete: %w", remotePath, err)
		}
		if !ok {
			return true, nil
		}
		remaining := deadline.Sub(clk.Now())
		if remaining <= 0 {
			return false, nil
		}
		if remaining > deleteCheckInterval {
			remaining = deleteCheckInterval
		}
		if err = clk.Sleep(ctx, remaining); err != nil {
			return false, err
		}
	}
}

// clock abstracts wall-clock time so waits are testable.
type clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// systemClock is the clock used outside tests.
type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
