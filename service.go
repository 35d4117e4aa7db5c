package stratus

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/viant/stratus/client"
	"github.com/viant/stratus/model"
	"github.com/viant/stratus/resolver"
	"github.com/viant/stratus/secret"
	"github.com/viant/stratus/session"
)

// Service is one authenticated platform connection. It caches the pipeline
// catalog obtained during the handshake and hands out sessions bound to the
// same client. Safe for concurrent use.
type Service struct {
	config      *Config
	client      client.Service
	secrets     *secret.Resolver
	httpClient  *http.Client
	store       resolver.Service
	storePrefix string

	mux         sync.RWMutex
	pipelines   []*model.Pipeline
	definitions map[string]*model.Definition
}

// New resolves the credential reference, connects to the platform and
// verifies the key by listing the pipelines the account can run. The
// reference is tried as an encrypted secret URL, a key file path, an
// environment variable name and finally as the API key itself.
func New(ctx context.Context, credentials string, options ...Option) (*Service, error) {
	ret := &Service{
		config:      DefaultConfig(),
		secrets:     secret.New(),
		definitions: map[string]*model.Definition{},
	}
	for _, option := range options {
		if err := option(ret); err != nil {
			return nil, err
		}
	}
	if err := ret.config.Validate(); err != nil {
		return nil, err
	}
	if ret.client == nil {
		key, err := ret.secrets.Resolve(ctx, credentials)
		if err != nil {
			return nil, err
		}
		var restOptions []client.RESTOption
		if ret.httpClient != nil {
			restOptions = append(restOptions, client.WithHTTPClient(ret.httpClient))
		}
		if ret.config.Certificate != "" {
			restOptions = append(restOptions, client.WithCertificate(ret.config.Certificate))
		}
		ret.client, err = client.NewREST(ret.config.Endpoint, key, restOptions...)
		if err != nil {
			return nil, err
		}
	}
	if _, err := ret.ReloadPipelines(ctx); err != nil {
		return nil, fmt.Errorf("platform handshake failed: %w", err)
	}
	return ret, nil
}

// Client returns the underlying platform client.
func (s *Service) Client() client.Service {
	return s.client
}

// Config returns a copy of the effective connection settings.
func (s *Service) Config() Config {
	return *s.config
}

// Pipelines returns the cached pipeline catalog.
func (s *Service) Pipelines() []*model.Pipeline {
	s.mux.RLock()
	defer s.mux.RUnlock()
	ret := make([]*model.Pipeline, len(s.pipelines))
	copy(ret, s.pipelines)
	return ret
}

// ReloadPipelines refreshes the pipeline catalog from the platform.
func (s *Service) ReloadPipelines(ctx context.Context) ([]*model.Pipeline, error) {
	pipelines, err := s.client.Pipelines(ctx)
	if err != nil {
		return nil, err
	}
	s.mux.Lock()
	s.pipelines = pipelines
	s.mux.Unlock()
	return pipelines, nil
}

// FindPipelines returns the executable pipelines whose identifier matches a
// case-insensitive partial pattern; an empty pattern matches all of them.
func (s *Service) FindPipelines(pattern string) []*model.Pipeline {
	s.mux.RLock()
	defer s.mux.RUnlock()
	var ret []*model.Pipeline
	for _, pipeline := range s.pipelines {
		if pipeline.CanExecute && pipeline.Match(pattern) {
			ret = append(ret, pipeline)
		}
	}
	return ret
}

// Definition returns the full definition of a pipeline, memoized per
// connection.
func (s *Service) Definition(ctx context.Context, id string) (*model.Definition, error) {
	s.mux.RLock()
	cached, ok := s.definitions[id]
	s.mux.RUnlock()
	if ok {
		return cached, nil
	}
	definition, err := s.client.Definition(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mux.Lock()
	s.definitions[id] = definition
	s.mux.Unlock()
	return definition, nil
}

// NewSession creates a session bound to this connection. The pipeline
// catalog is shared, so definition lookups from any session hit the memoized
// cache. Call Restore on the returned session to resume from an existing
// backup record.
func (s *Service) NewSession(options ...session.Option) (*session.Session, error) {
	return session.New(s.client, append(s.sessionDefaults(), options...)...)
}

// NewContentSession creates a session whose results and backup record live
// in a content-store folder; path inputs render as prefix:id references.
// Requires a content store wired with WithContentStore.
func (s *Service) NewContentSession(folder string, options ...session.Option) (*session.Session, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no content store configured")
	}
	base := append(s.sessionDefaults(),
		session.WithContentStore(s.storePrefix, s.store),
		session.WithRemoteOutputDir(folder),
		session.WithBackup(session.NewMetadataBackup(s.store, folder)),
	)
	return session.New(s.client, append(base, options...)...)
}

func (s *Service) sessionDefaults() []session.Option {
	ret := []session.Option{
		session.WithDefinitions(s.Definition),
	}
	if s.config.RemoteBase != "" {
		ret = append(ret, session.WithRemoteBase(s.config.RemoteBase))
	}
	if s.config.Transfers > 0 {
		ret = append(ret, session.WithTransfers(s.config.Transfers))
	}
	return ret
}
