package session

import (
	"context"
	"log"

	"github.com/viant/stratus/model"
	"github.com/viant/stratus/resolver"
	"github.com/viant/stratus/translate"
)

// defaultTransfers bounds the worker pool used by bulk file transfers.
const defaultTransfers = 5

// Option customizes a session at construction.
type Option func(*Session) error

// WithName assigns the session name.
func WithName(name string) Option {
	return func(s *Session) error {
		return s.SetName(name)
	}
}

// WithPipeline assigns the pipeline identifier, application/version.
func WithPipeline(pipelineID string) Option {
	return func(s *Session) error {
		return s.SetPipeline(pipelineID)
	}
}

// WithInputs assigns the parameter bag.
func WithInputs(inputs map[string]interface{}) Option {
	return func(s *Session) error {
		return s.SetInputs(inputs)
	}
}

// WithLocalInputDir assigns the local dataset root.
func WithLocalInputDir(dir string) Option {
	return func(s *Session) error {
		return s.SetLocalInputDir(dir)
	}
}

// WithLocalOutputDir assigns the local result root; it also becomes the
// default backup location.
func WithLocalOutputDir(dir string) Option {
	return func(s *Session) error {
		return s.SetLocalOutputDir(dir)
	}
}

// WithRemoteInputDir assigns the platform dataset location.
func WithRemoteInputDir(dir string) Option {
	return func(s *Session) error {
		return s.SetRemoteInputDir(dir)
	}
}

// WithRemoteOutputDir assigns the platform result location.
func WithRemoteOutputDir(dir string) Option {
	return func(s *Session) error {
		return s.SetRemoteOutputDir(dir)
	}
}

// WithRemoteBase replaces the root under which generated session
// directories live.
func WithRemoteBase(base string) Option {
	return func(s *Session) error {
		s.remoteBase = base
		return nil
	}
}

// WithBackup replaces the backup store.
func WithBackup(backup BackupStore) Option {
	return func(s *Session) error {
		s.backup = backup
		return nil
	}
}

// WithContentStore binds the session to a content-management store: path
// inputs live there, launch renders them as prefix:id references the way
// content-backed pipelines expect, and directory operations go through the
// store instead of the platform file system.
func WithContentStore(prefix string, store resolver.Service) Option {
	return func(s *Session) error {
		s.contentStore = store
		s.storage = NewContentStorage(store)
		s.contentRefs = &resolver.References{Service: store, Prefix: prefix}
		s.refPrefixes = append(s.refPrefixes, prefix)
		s.inputDomain = translate.DomainReference
		s.remotePrefix = contentPathPrefix
		return nil
	}
}

// WithTransfers bounds the transfer worker pool.
func WithTransfers(limit int) Option {
	return func(s *Session) error {
		if limit > 0 {
			s.transfers = limit
		}
		return nil
	}
}

// WithDefinitions replaces the pipeline definition lookup, letting a
// service share one memoized catalog across sessions.
func WithDefinitions(definitions func(ctx context.Context, id string) (*model.Definition, error)) Option {
	return func(s *Session) error {
		s.definitions = definitions
		return nil
	}
}

// WithLogger replaces the warning logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Session) error {
		s.logger = logger
		return nil
	}
}
