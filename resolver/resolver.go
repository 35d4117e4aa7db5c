// Package resolver maps paths of a content-management store onto resource
// identifiers and back, and enforces the shape rules a resource must satisfy
// to serve as a pipeline input.
package resolver

import (
	"context"
	"errors"
	"fmt"
)

// Resource kinds of the content-management store.
const (
	KindFile       = "file"
	KindItem       = "item"
	KindFolder     = "folder"
	KindCollection = "collection"
)

// ErrNotFound is returned when a path resolves to no resource.
var ErrNotFound = errors.New("resource not found")

// Ref identifies one resource.
type Ref struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// ShapeError reports a resource whose layout disqualifies it as a pipeline
// input.
type ShapeError struct {
	Path  string
	Kind  string
	Files int
}

func (e *ShapeError) Error() string {
	switch e.Kind {
	case KindItem:
		return fmt.Sprintf("ambiguous item %v contains %v files, expected exactly 1", e.Path, e.Files)
	default:
		return fmt.Sprintf("resource %v of kind %v cannot be used as a pipeline input", e.Path, e.Kind)
	}
}

// Service is the content-management store collaborator.
type Service interface {
	// Resolve maps a path to its resource; ErrNotFound when absent.
	Resolve(ctx context.Context, path string) (*Ref, error)

	// Path maps a resource back to its path.
	Path(ctx context.Context, ref *Ref) (string, error)

	// Items lists the child items of a folder.
	Items(ctx context.Context, folderID string) ([]*Ref, error)

	// CreateFolder creates a folder under a parent folder and returns its
	// identifier; an existing folder with the same name is reused.
	CreateFolder(ctx context.Context, parentID, name, description string) (string, error)

	// Files lists the file identifiers inside an item.
	Files(ctx context.Context, itemID string) ([]string, error)

	// Metadata returns the metadata document attached to a folder.
	Metadata(ctx context.Context, folderID string) (map[string]interface{}, error)

	// AddMetadata merges entries into a folder's metadata document.
	AddMetadata(ctx context.Context, folderID string, metadata map[string]interface{}) error
}

// References renders paths of a content store as prefix:id input values.
type References struct {
	Service Service
	// Prefix is the reference scheme, e.g. "girder".
	Prefix string
}

// References expands one path into input references. A file maps directly;
// an item must hold exactly one file; a folder expands to its items' single
// files, reporting the first violation; anything else is rejected.
func (r *References) References(ctx context.Context, path string) ([]string, error) {
	ref, err := r.Service.Resolve(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %v: %w", path, err)
	}
	switch ref.Kind {
	case KindFile:
		return []string{r.render(ref.ID)}, nil
	case KindItem:
		id, err := r.singleFile(ctx, path, ref.ID)
		if err != nil {
			return nil, err
		}
		return []string{r.render(id)}, nil
	case KindFolder:
		items, err := r.Service.Items(ctx, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list items of %v: %w", path, err)
		}
		ret := make([]string, 0, len(items))
		for _, item := range items {
			id, err := r.singleFile(ctx, path, item.ID)
			if err != nil {
				return nil, err
			}
			ret = append(ret, r.render(id))
		}
		return ret, nil
	}
	return nil, &ShapeError{Path: path, Kind: ref.Kind}
}

func (r *References) singleFile(ctx context.Context, path, itemID string) (string, error) {
	files, err := r.Service.Files(ctx, itemID)
	if err != nil {
		return "", fmt.Errorf("failed to list files of %v: %w", path, err)
	}
	if len(files) != 1 {
		return "", &ShapeError{Path: path, Kind: KindItem, Files: len(files)}
	}
	return files[0], nil
}

func (r *References) render(id string) string {
	return r.Prefix + ":" + id
}
