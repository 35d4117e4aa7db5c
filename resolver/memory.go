package resolver

import (
	"context"
	"fmt"
	"sync"
)

type memoryResource struct {
	ref      *Ref
	path     string
	items    []*Ref
	files    []string
	metadata map[string]interface{}
}

// Memory is an in-process content store used by tests.
type Memory struct {
	mux     sync.RWMutex
	byPath  map[string]*memoryResource
	byID    map[string]*memoryResource
	counter int
}

// NewMemory creates an empty in-process content store.
func NewMemory() *Memory {
	return &Memory{
		byPath: map[string]*memoryResource{},
		byID:   map[string]*memoryResource{},
	}
}

// Add registers a resource at a path and returns its identifier. For items,
// files lists the file identifiers the item holds.
func (m *Memory) Add(path, kind string, files ...string) string {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.counter++
	resource := &memoryResource{
		ref:      &Ref{ID: fmt.Sprintf("res-%03d", m.counter), Kind: kind},
		path:     path,
		files:    files,
		metadata: map[string]interface{}{},
	}
	m.byPath[path] = resource
	m.byID[resource.ref.ID] = resource
	return resource.ref.ID
}

// AddItem registers an item under a folder.
func (m *Memory) AddItem(folderID, path string, files ...string) string {
	id := m.Add(path, KindItem, files...)
	m.mux.Lock()
	defer m.mux.Unlock()
	folder := m.byID[folderID]
	folder.items = append(folder.items, m.byID[id].ref)
	return id
}

// CreateFolder creates a folder under a parent folder; an existing folder
// with the same name is reused.
func (m *Memory) CreateFolder(ctx context.Context, parentID, name, description string) (string, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	parent, ok := m.byID[parentID]
	if !ok {
		return "", fmt.Errorf("%v: %w", parentID, ErrNotFound)
	}
	childPath := parent.path + "/" + name
	if existing, ok := m.byPath[childPath]; ok {
		return existing.ref.ID, nil
	}
	m.counter++
	resource := &memoryResource{
		ref:      &Ref{ID: fmt.Sprintf("res-%03d", m.counter), Kind: KindFolder},
		path:     childPath,
		metadata: map[string]interface{}{},
	}
	m.byPath[childPath] = resource
	m.byID[resource.ref.ID] = resource
	return resource.ref.ID, nil
}

// Resolve maps a path to its resource.
func (m *Memory) Resolve(ctx context.Context, path string) (*Ref, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	resource, ok := m.byPath[path]
	if !ok {
		return nil, fmt.Errorf("%v: %w", path, ErrNotFound)
	}
	return resource.ref, nil
}

// Path maps a resource back to its path.
func (m *Memory) Path(ctx context.Context, ref *Ref) (string, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	resource, ok := m.byID[ref.ID]
	if !ok {
		return "", fmt.Errorf("%v: %w", ref.ID, ErrNotFound)
	}
	return resource.path, nil
}

// Items lists the child items of a folder.
func (m *Memory) Items(ctx context.Context, folderID string) ([]*Ref, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	resource, ok := m.byID[folderID]
	if !ok {
		return nil, fmt.Errorf("%v: %w", folderID, ErrNotFound)
	}
	return resource.items, nil
}

// Files lists the file identifiers inside an item.
func (m *Memory) Files(ctx context.Context, itemID string) ([]string, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	resource, ok := m.byID[itemID]
	if !ok {
		return nil, fmt.Errorf("%v: %w", itemID, ErrNotFound)
	}
	return resource.files, nil
}

// Metadata returns a copy of a folder's metadata document.
func (m *Memory) Metadata(ctx context.Context, folderID string) (map[string]interface{}, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	resource, ok := m.byID[folderID]
	if !ok {
		return nil, fmt.Errorf("%v: %w", folderID, ErrNotFound)
	}
	ret := make(map[string]interface{}, len(resource.metadata))
	for key, value := range resource.metadata {
		ret[key] = value
	}
	return ret, nil
}

// AddMetadata merges entries into a folder's metadata document.
func (m *Memory) AddMetadata(ctx context.Context, folderID string, metadata map[string]interface{}) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	resource, ok := m.byID[folderID]
	if !ok {
		return fmt.Errorf("%v: %w", folderID, ErrNotFound)
	}
	for key, value := range metadata {
		resource.metadata[key] = value
	}
	return nil
}
