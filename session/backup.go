package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/stratus/client"
	"github.com/viant/stratus/resolver"
	"github.com/viant/structology/conv"
)

// recordName is the file the session record is saved under.
const recordName = "session_data.json"

// BackupStore persists session snapshots at a location addressed by the
// session's output directory.
type BackupStore interface {
	// Save writes the snapshot, reconciling with any record already there.
	Save(ctx context.Context, snapshot *Snapshot) error

	// Load reads the record; ok is false when no backup exists, which is a
	// normal outcome, not a failure.
	Load(ctx context.Context) (snapshot *Snapshot, ok bool, err error)

	// Location describes where the record lives, for messages.
	Location() string
}

// reconcile guards the identity of an existing record and carries its
// foreign properties over. Two different session names on one location is
// a hard conflict.
func reconcile(location string, existing, snapshot *Snapshot) error {
	if existing == nil {
		return nil
	}
	if existing.Name != snapshot.Name {
		return &IdentityConflictError{Location: location, Stored: existing.Name, Proposed: snapshot.Name}
	}
	for key, value := range existing.Extra {
		if snapshot.Extra == nil {
			snapshot.Extra = map[string]json.RawMessage{}
		}
		if _, ok := snapshot.Extra[key]; !ok {
			snapshot.Extra[key] = value
		}
	}
	return nil
}

// FileBackup keeps the record as a JSON file under a directory URL; with a
// plain path that is the local file system, any other afs scheme works the
// same way.
type FileBackup struct {
	fs  afs.Service
	dir string
}

// NewFileBackup creates a file-based backup store rooted at dir.
func NewFileBackup(dir string) *FileBackup {
	return &FileBackup{fs: afs.New(), dir: dir}
}

func (b *FileBackup) Location() string {
	return url.Join(b.dir, recordName)
}

func (b *FileBackup) Save(ctx context.Context, snapshot *Snapshot) error {
	existing, ok, err := b.Load(ctx)
	if err != nil {
		return err
	}
	if ok {
		if err = reconcile(b.Location(), existing, snapshot); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	if ok, _ := b.fs.Exists(ctx, b.dir); !ok {
		if err = b.fs.Create(ctx, b.dir, file.DefaultDirOsMode, true); err != nil {
			return fmt.Errorf("failed to create backup directory %v: %w", b.dir, err)
		}
	}
	if err = b.fs.Upload(ctx, b.Location(), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write backup %v: %w", b.Location(), err)
	}
	return nil
}

func (b *FileBackup) Load(ctx context.Context) (*Snapshot, bool, error) {
	if ok, _ := b.fs.Exists(ctx, b.Location()); !ok {
		return nil, false, nil
	}
	data, err := b.fs.DownloadWithURL(ctx, b.Location())
	if err != nil {
		return nil, false, fmt.Errorf("failed to read backup %v: %w", b.Location(), err)
	}
	snapshot := &Snapshot{}
	if err = json.Unmarshal(data, snapshot); err != nil {
		return nil, false, fmt.Errorf("corrupted backup %v: %w", b.Location(), err)
	}
	return snapshot, true, nil
}

// PlatformBackup keeps the record next to the session outputs on the
// execution platform.
type PlatformBackup struct {
	fs      afs.Service
	service client.Service
	dir     string
}

// NewPlatformBackup creates a backup store under a platform directory.
func NewPlatformBackup(service client.Service, dir string) *PlatformBackup {
	return &PlatformBackup{fs: afs.New(), service: service, dir: dir}
}

func (b *PlatformBackup) Location() string {
	return path.Join(b.dir, recordName)
}

func (b *PlatformBackup) Save(ctx context.Context, snapshot *Snapshot) error {
	existing, ok, err := b.Load(ctx)
	if err != nil {
		return err
	}
	if ok {
		if err = reconcile(b.Location(), existing, snapshot); err != nil {
			return err
		}
	}
	if err = Mkdirs(ctx, b.service, b.dir); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	staging, err := b.stage(data)
	if err != nil {
		return err
	}
	defer os.RemoveAll(filepath.Dir(staging))
	if err = b.service.Upload(ctx, staging, b.Location()); err != nil {
		return fmt.Errorf("failed to write backup %v: %w", b.Location(), err)
	}
	return nil
}

func (b *PlatformBackup) Load(ctx context.Context) (*Snapshot, bool, error) {
	ok, err := b.service.Exists(ctx, b.Location())
	if err != nil {
		return nil, false, fmt.Errorf("failed to check backup %v: %w", b.Location(), err)
	}
	if !ok {
		return nil, false, nil
	}
	staging, err := os.MkdirTemp("", "session-backup")
	if err != nil {
		return nil, false, err
	}
	defer os.RemoveAll(staging)
	local := filepath.Join(staging, recordName)
	if err = b.service.Download(ctx, b.Location(), local); err != nil {
		return nil, false, fmt.Errorf("failed to read backup %v: %w", b.Location(), err)
	}
	data, err := b.fs.DownloadWithURL(ctx, local)
	if err != nil {
		return nil, false, err
	}
	snapshot := &Snapshot{}
	if err = json.Unmarshal(data, snapshot); err != nil {
		return nil, false, fmt.Errorf("corrupted backup %v: %w", b.Location(), err)
	}
	return snapshot, true, nil
}

func (b *PlatformBackup) stage(data []byte) (string, error) {
	staging, err := os.MkdirTemp("", "session-backup")
	if err != nil {
		return "", err
	}
	local := filepath.Join(staging, recordName)
	if err = os.WriteFile(local, data, 0o600); err != nil {
		os.RemoveAll(staging)
		return "", err
	}
	return local, nil
}

// MetadataBackup keeps the record in the metadata document of a
// content-store folder.
type MetadataBackup struct {
	store     resolver.Service
	folder    string
	converter *conv.Converter
}

// NewMetadataBackup creates a backup store over a content-store folder's
// metadata.
func NewMetadataBackup(store resolver.Service, folder string) *MetadataBackup {
	return &MetadataBackup{
		store:     store,
		folder:    folder,
		converter: conv.NewConverter(conv.DefaultOptions()),
	}
}

func (b *MetadataBackup) Location() string {
	return b.folder
}

func (b *MetadataBackup) Save(ctx context.Context, snapshot *Snapshot) error {
	existing, ok, err := b.Load(ctx)
	if err != nil {
		return err
	}
	if ok {
		if err = reconcile(b.folder, existing, snapshot); err != nil {
			return err
		}
	}
	ref, err := b.store.Resolve(ctx, b.folder)
	if err != nil {
		return fmt.Errorf("backup folder %v is not accessible: %w", b.folder, err)
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	var document map[string]interface{}
	if err = json.Unmarshal(data, &document); err != nil {
		return err
	}
	if err = b.store.AddMetadata(ctx, ref.ID, document); err != nil {
		return fmt.Errorf("failed to write metadata backup on %v: %w", b.folder, err)
	}
	return nil
}

func (b *MetadataBackup) Load(ctx context.Context) (*Snapshot, bool, error) {
	ref, err := b.store.Resolve(ctx, b.folder)
	if err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	document, err := b.store.Metadata(ctx, ref.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read metadata of %v: %w", b.folder, err)
	}
	if _, ok := document["session_name"]; !ok {
		return nil, false, nil
	}
	snapshot := &Snapshot{}
	alias := (*snapshotAlias)(snapshot)
	if err = b.converter.Convert(document, alias); err != nil {
		return nil, false, fmt.Errorf("corrupted metadata backup on %v: %w", b.folder, err)
	}
	for _, known := range snapshotKeys {
		delete(document, known)
	}
	for key, value := range document {
		raw, err := json.Marshal(value)
		if err != nil {
			continue
		}
		if snapshot.Extra == nil {
			snapshot.Extra = map[string]json.RawMessage{}
		}
		snapshot.Extra[key] = raw
	}
	return snapshot, true, nil
}
