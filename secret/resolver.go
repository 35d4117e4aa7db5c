// Package secret resolves the platform API key from the places users keep
// it: a local file, an environment variable, an encrypted secret resource or
// the literal value itself.
package secret

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/scy"
)

// secretScheme marks values that name an encrypted secret resource, e.g.
// "secret://blackbox/~/.secret/platform.scy".
const secretScheme = "secret://"

// Resolver turns a credential reference into the API key value.
type Resolver struct {
	fs  afs.Service
	scy *scy.Service
	// lookupEnv is swappable in tests.
	lookupEnv func(string) (string, bool)
}

// New creates a credential resolver.
func New() *Resolver {
	return &Resolver{
		fs:        afs.New(),
		scy:       scy.New(),
		lookupEnv: os.LookupEnv,
	}
}

// Resolve interprets a credential reference. The reference is tried in
// order as an encrypted secret resource, a path to a file holding the key, a
// name of an environment variable, and finally as the key itself. A file
// takes precedence over an environment variable of the same name.
func (r *Resolver) Resolve(ctx context.Context, reference string) (string, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "", fmt.Errorf("credential reference was empty")
	}
	if strings.HasPrefix(reference, secretScheme) {
		return r.loadSecret(ctx, reference[len(secretScheme):])
	}
	if ok, _ := r.fs.Exists(ctx, reference); ok {
		return r.loadFile(ctx, reference)
	}
	if value, ok := r.lookupEnv(reference); ok {
		if value = strings.TrimSpace(value); value == "" {
			return "", fmt.Errorf("environment variable %v is set but empty", reference)
		}
		return value, nil
	}
	return reference, nil
}

func (r *Resolver) loadSecret(ctx context.Context, location string) (string, error) {
	key := ""
	if index := strings.Index(location, "|"); index != -1 {
		location, key = location[:index], location[index+1:]
	}
	resource := scy.NewResource(nil, location, key)
	loaded, err := r.scy.Load(ctx, resource)
	if err != nil {
		return "", fmt.Errorf("failed to load secret %v: %w", location, err)
	}
	value := strings.TrimSpace(loaded.String())
	if value == "" {
		return "", fmt.Errorf("secret %v holds no API key", location)
	}
	return value, nil
}

// loadFile reads the first non-empty line of a key file.
func (r *Resolver) loadFile(ctx context.Context, location string) (string, error) {
	data, err := r.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return "", fmt.Errorf("failed to read key file %v: %w", location, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("key file %v was empty", location)
}
