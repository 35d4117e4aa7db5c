// Package session drives the lifecycle of one processing session on the
// execution platform: launch, monitor, download, finish, with every step
// checkpointed to a backup store so a restarted process resumes where it
// left off.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/viant/stratus/client"
	"github.com/viant/stratus/model"
	"github.com/viant/stratus/resolver"
	"github.com/viant/stratus/translate"
)

const (
	defaultRemoteBase = "/vip/Home/API"
	// remotePathPrefix marks values addressing the platform file system;
	// contentPathPrefix marks values addressing a content-management store.
	remotePathPrefix  = "/vip"
	contentPathPrefix = "/collection"
	inputsDirName     = "INPUTS"
	outputsDirName    = "OUTPUTS"
	// resultsDirectoryKey is the platform-understood input key carrying the
	// execution output location; it is never part of a pipeline definition.
	resultsDirectoryKey = "results-directory"
)

// Session is the client-side aggregate for one processing run set. Public
// operations are synchronous and must not be invoked concurrently on the
// same instance; bulk transfers parallelize internally.
type Session struct {
	mux sync.RWMutex

	name            string
	pipelineID      string
	inputs          map[string]interface{}
	localInputDir   string
	localOutputDir  string
	remoteInputDir  string
	remoteOutputDir string
	ownsInputs      bool
	inventory       model.Inventory
	extra           map[string]json.RawMessage

	// defaulted marks properties still holding a generated value; they can
	// be assigned once without a conflict.
	defaulted map[string]bool
	// storedInputs marks an input bag adopted from a backup, which uses the
	// canonical relative encoding.
	storedInputs bool

	service client.Service
	// storage carries file operations; the platform client by default, a
	// content-store adapter for content-flavored sessions.
	storage      Storage
	contentStore resolver.Service
	backup       BackupStore
	// backupDerived marks a backup binding the session chose itself, free to
	// follow later directory assignments.
	backupDerived bool
	definitions   func(ctx context.Context, id string) (*model.Definition, error)
	contentRefs   translate.Resolver
	refPrefixes   []string
	inputDomain   translate.Domain
	remoteBase    string
	remotePrefix  string
	transfers     int
	logger        *log.Logger
	clk           clock
}

// New creates a session bound to a platform client. Unset properties get
// generated defaults; no remote call happens until an operation runs.
func New(service client.Service, options ...Option) (*Session, error) {
	ret := &Session{
		service:     service,
		inventory:   model.Inventory{},
		ownsInputs:  true,
		defaulted:   map[string]bool{},
		inputDomain:  translate.DomainRemote,
		remoteBase:   defaultRemoteBase,
		remotePrefix: remotePathPrefix,
		transfers:    defaultTransfers,
		logger:       log.Default(),
		clk:          systemClock{},
	}
	ret.definitions = func(ctx context.Context, id string) (*model.Definition, error) {
		return service.Definition(ctx, id)
	}
	for _, option := range options {
		if err := option(ret); err != nil {
			return nil, err
		}
	}
	if ret.name == "" {
		ret.name = "session-" + uuid.New().String()[:8]
		ret.defaulted["name"] = true
	}
	if ret.remoteInputDir == "" {
		ret.remoteInputDir = path.Join(ret.remoteBase, ret.name, inputsDirName)
		ret.defaulted["remoteInputDir"] = true
	}
	if ret.remoteOutputDir == "" {
		ret.remoteOutputDir = path.Join(ret.remoteBase, ret.name, outputsDirName)
		ret.defaulted["remoteOutputDir"] = true
	}
	if ret.storage == nil {
		ret.storage = service
	}
	if ret.backup == nil {
		ret.backupDerived = true
		if ret.localOutputDir != "" {
			ret.backup = NewFileBackup(ret.localOutputDir)
		} else {
			ret.backup = NewPlatformBackup(service, ret.remoteOutputDir)
		}
	}
	return ret, nil
}

// Name returns the session name.
func (s *Session) Name() string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.name
}

// PipelineID returns the pipeline this session runs.
func (s *Session) PipelineID() string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.pipelineID
}

// RemoteInputDir returns the platform-side dataset location.
func (s *Session) RemoteInputDir() string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.remoteInputDir
}

// RemoteOutputDir returns the platform-side result location.
func (s *Session) RemoteOutputDir() string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.remoteOutputDir
}

// OwnsInputs reports whether the remote dataset belongs to this session;
// shared datasets are spared by Finish.
func (s *Session) OwnsInputs() bool {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.ownsInputs
}

// Inventory returns a copy of the execution records.
func (s *Session) Inventory() model.Inventory {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.inventory.Clone()
}

// SetName assigns the session name. A generated name can be replaced once;
// replacing an assigned name with a different one is a conflict.
func (s *Session) SetName(name string) error {
	if name == "" {
		return nil
	}
	if err := checkName(name); err != nil {
		return err
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if err := s.assign("name", &s.name, name); err != nil {
		return err
	}
	// A renamed session keeps generated directories in step with the name.
	if s.defaulted["remoteInputDir"] {
		s.remoteInputDir = path.Join(s.remoteBase, s.name, inputsDirName)
	}
	if s.defaulted["remoteOutputDir"] {
		s.remoteOutputDir = path.Join(s.remoteBase, s.name, outputsDirName)
	}
	return nil
}

// SetPipeline assigns the pipeline identifier, application/version.
func (s *Session) SetPipeline(pipelineID string) error {
	if pipelineID == "" {
		return nil
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.assign("pipelineID", &s.pipelineID, pipelineID)
}

// SetInputs assigns the parameter bag. It follows directory assignment so
// path values relate to the final input directories.
func (s *Session) SetInputs(inputs map[string]interface{}) error {
	if len(inputs) == 0 {
		return nil
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.inputs != nil {
		if reflect.DeepEqual(s.inputs, inputs) {
			return nil
		}
		return NewConflict(s.name, "inputs", "an assigned parameter bag", "a different one")
	}
	s.inputs = inputs
	s.storedInputs = false
	return nil
}

// SetLocalInputDir assigns the local dataset root.
func (s *Session) SetLocalInputDir(dir string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.assign("localInputDir", &s.localInputDir, dir)
}

// SetLocalOutputDir assigns the local result root. A session-derived backup
// binding follows the assignment so checkpoints land on disk from then on.
func (s *Session) SetLocalOutputDir(dir string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if err := s.assign("localOutputDir", &s.localOutputDir, dir); err != nil {
		return err
	}
	if s.backupDerived && s.localOutputDir != "" {
		s.backup = NewFileBackup(s.localOutputDir)
	}
	return nil
}

// SetRemoteInputDir assigns the platform dataset location.
func (s *Session) SetRemoteInputDir(dir string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.assign("remoteInputDir", &s.remoteInputDir, dir)
}

// SetRemoteOutputDir assigns the platform result location.
func (s *Session) SetRemoteOutputDir(dir string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.assign("remoteOutputDir", &s.remoteOutputDir, dir)
}

// assign enforces the property conflict rule: re-assigning the current
// value is a no-op, replacing a caller-assigned value is an error.
func (s *Session) assign(property string, current *string, value string) error {
	if value == "" || *current == value {
		return nil
	}
	if *current != "" && !s.defaulted[property] {
		return NewConflict(s.name, property, *current, value)
	}
	*current = value
	delete(s.defaulted, property)
	return nil
}

// Snapshot renders the persistable state, with path references in their
// portable relative encoding.
func (s *Session) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	ret := &Snapshot{
		Name:            s.name,
		PipelineID:      s.pipelineID,
		LocalInputDir:   s.localInputDir,
		LocalOutputDir:  s.localOutputDir,
		RemoteInputDir:  s.remoteInputDir,
		RemoteOutputDir: s.remoteOutputDir,
		OwnsInputs:      s.ownsInputs,
		Workflows:       s.inventory.Clone(),
		Extra:           s.extra,
	}
	if s.inputs != nil {
		parsed, err := s.parseInputs()
		if err != nil {
			return nil, err
		}
		canonical, err := s.translator().RenderBag(ctx, parsed, translate.DomainCanonical)
		if err != nil {
			return nil, err
		}
		ret.Inputs = canonical
	}
	return ret, nil
}

// Save checkpoints the session to its backup store.
func (s *Session) Save(ctx context.Context) error {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err = s.backup.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("session %v: %w", s.Name(), err)
	}
	return nil
}

// Restore adopts the backup found at the session's backup location, ok is
// false when none exists. A backup under a different name than an assigned
// session name is an identity conflict; where an assigned property differs
// from the backup, the backup wins with a logged warning.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	stored, ok, err := s.backup.Load(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if stored.Name != s.name && !s.defaulted["name"] {
		return false, &IdentityConflictError{Location: s.backup.Location(), Stored: stored.Name, Proposed: s.name}
	}
	s.warnOnDivergence(stored)
	s.name = stored.Name
	delete(s.defaulted, "name")
	s.adopt("pipelineID", &s.pipelineID, stored.PipelineID)
	s.adopt("localInputDir", &s.localInputDir, stored.LocalInputDir)
	s.adopt("localOutputDir", &s.localOutputDir, stored.LocalOutputDir)
	s.adopt("remoteInputDir", &s.remoteInputDir, stored.RemoteInputDir)
	s.adopt("remoteOutputDir", &s.remoteOutputDir, stored.RemoteOutputDir)
	if stored.Inputs != nil {
		s.inputs = stored.Inputs
		s.storedInputs = true
	}
	s.ownsInputs = stored.OwnsInputs
	if stored.Workflows != nil {
		for id, workflow := range stored.Workflows {
			if existing, found := s.inventory[id]; found {
				existing.Update(workflow)
			} else {
				s.inventory[id] = workflow.Clone()
			}
		}
	}
	s.extra = stored.Extra
	return true, nil
}

func (s *Session) adopt(property string, current *string, value string) {
	if value == "" {
		return
	}
	*current = value
	delete(s.defaulted, property)
}

// warnOnDivergence logs a diff when properties assigned in memory differ
// from the backup about to win over them. Callers hold the write lock.
func (s *Session) warnOnDivergence(stored *Snapshot) {
	assigned := func(property, value string) bool {
		return value != "" && !s.defaulted[property]
	}
	var left, right []string
	conflict := func(property, current, backed string) {
		if assigned(property, current) && backed != "" && current != backed {
			left = append(left, fmt.Sprintf("%v: %v\n", property, current))
			right = append(right, fmt.Sprintf("%v: %v\n", property, backed))
		}
	}
	conflict("pipeline", s.pipelineID, stored.PipelineID)
	conflict("local input dir", s.localInputDir, stored.LocalInputDir)
	conflict("local output dir", s.localOutputDir, stored.LocalOutputDir)
	conflict("remote input dir", s.remoteInputDir, stored.RemoteInputDir)
	conflict("remote output dir", s.remoteOutputDir, stored.RemoteOutputDir)
	if len(left) == 0 {
		return
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        left,
		B:        right,
		FromFile: "in-memory",
		ToFile:   s.backup.Location(),
		Context:  1,
	})
	if err != nil {
		return
	}
	s.logger.Printf("[WARN] session %v: backup at %v overrides assigned properties:\n%v", s.name, s.backup.Location(), diff)
}

// translator builds the path translator for the current directory pair.
// Callers hold at least a read lock.
func (s *Session) translator() *translate.Translator {
	return &translate.Translator{
		LocalInputDir:     s.localInputDir,
		RemoteInputDir:    s.remoteInputDir,
		RemotePrefix:      s.remotePrefix,
		ReferencePrefixes: s.refPrefixes,
		Resolver:          s.contentRefs,
	}
}

// parseInputs classifies the current bag; restored bags use the stored
// relative encoding. Callers hold at least a read lock.
func (s *Session) parseInputs() (map[string]*translate.Value, error) {
	translator := s.translator()
	ret := make(map[string]*translate.Value, len(s.inputs))
	for name, value := range s.inputs {
		var parsed *translate.Value
		var err error
		if s.storedInputs {
			parsed, err = translator.ParseStored(value)
		} else {
			parsed, err = translator.Parse(value)
		}
		if err != nil {
			return nil, fmt.Errorf("parameter %v: %w", name, err)
		}
		ret[name] = parsed
	}
	return ret, nil
}

// renderInputs renders the bag to one domain. Callers hold at least a read
// lock.
func (s *Session) renderInputs(ctx context.Context, domain translate.Domain) (map[string]interface{}, error) {
	parsed, err := s.parseInputs()
	if err != nil {
		return nil, err
	}
	return s.translator().RenderBag(ctx, parsed, domain)
}

// checkName enforces the safe session name character set.
func checkName(name string) error {
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == ' ':
		default:
			return &InvalidNameError{Name: name}
		}
	}
	return nil
}
