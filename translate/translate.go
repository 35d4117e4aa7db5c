// Package translate converts parameter values between the local filesystem,
// the remote platform namespace and content references, keeping a portable
// relative encoding for values tied to the session's input directories.
package translate

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/viant/toolbox"
)

// Domain selects the representation a parsed value is rendered to.
type Domain int

const (
	// DomainLocal renders under the local input directory.
	DomainLocal Domain = iota
	// DomainRemote renders under the remote input directory.
	DomainRemote
	// DomainCanonical renders the portable form used by session backups.
	DomainCanonical
	// DomainReference renders content references of the form prefix:id.
	DomainReference
)

// Kind classifies one parsed value.
type Kind int

const (
	// KindOpaque is a plain parameter with no relation to either input
	// directory; parse and render are identity for it.
	KindOpaque Kind = iota
	// KindRelative is a path under an input directory, held relative to it.
	KindRelative
	// KindRemote is an absolute platform path outside the input directory.
	KindRemote
	// KindReference is a content reference, prefix:id.
	KindReference
)

// Node is one parsed scalar.
type Node struct {
	Kind Kind
	// Raw holds the original text for opaque, remote and reference nodes.
	Raw string
	// Rel holds the slash-separated path relative to the input directory.
	Rel string
}

// Value is one parsed parameter: a scalar or a list of scalars.
type Value struct {
	Nodes []*Node
	List  bool
}

// Resolver expands a remote path into content references, enforcing the
// platform's shape rules for items and folders.
type Resolver interface {
	References(ctx context.Context, remotePath string) ([]string, error)
}

// Translator converts values between domains for one session's directory
// pair.
type Translator struct {
	// LocalInputDir is the absolute local dataset root; empty when the
	// session has no local dataset.
	LocalInputDir string
	// RemoteInputDir is the platform-side dataset root.
	RemoteInputDir string
	// RemotePrefix is the root of the platform namespace.
	RemotePrefix string
	// ReferencePrefixes name the schemes of content references.
	ReferencePrefixes []string
	// Resolver is required only for DomainReference rendering.
	Resolver Resolver
}

// Parse classifies a parameter value. Scalars outside both input
// directories pass through as opaque.
func (t *Translator) Parse(value interface{}) (*Value, error) {
	switch actual := value.(type) {
	case []string:
		ret := &Value{List: true}
		for _, item := range actual {
			ret.Nodes = append(ret.Nodes, t.parseScalar(item))
		}
		return ret, nil
	case []interface{}:
		ret := &Value{List: true}
		for _, item := range actual {
			ret.Nodes = append(ret.Nodes, t.parseScalar(toolbox.AsString(item)))
		}
		return ret, nil
	case nil:
		return nil, fmt.Errorf("parameter value was nil")
	default:
		return &Value{Nodes: []*Node{t.parseScalar(toolbox.AsString(actual))}}, nil
	}
}

func (t *Translator) parseScalar(text string) *Node {
	for _, prefix := range t.ReferencePrefixes {
		if strings.HasPrefix(text, prefix+":") {
			return &Node{Kind: KindReference, Raw: text}
		}
	}
	if t.RemotePrefix != "" && underPath(text, t.RemotePrefix) {
		cleaned := path.Clean(text)
		if t.RemoteInputDir != "" && underPath(cleaned, t.RemoteInputDir) {
			return &Node{Kind: KindRelative, Rel: relPath(cleaned, t.RemoteInputDir)}
		}
		return &Node{Kind: KindRemote, Raw: cleaned}
	}
	if t.LocalInputDir != "" {
		// Relative values resolve against the working directory before the
		// dataset root check, the way a shell path would.
		candidate := text
		if !filepath.IsAbs(candidate) {
			if absolute, err := filepath.Abs(candidate); err == nil {
				candidate = absolute
			}
		}
		cleaned := filepath.Clean(candidate)
		root := filepath.Clean(t.LocalInputDir)
		if !filepath.IsAbs(root) {
			if absolute, err := filepath.Abs(root); err == nil {
				root = absolute
			}
		}
		if rel, err := filepath.Rel(root, cleaned); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return &Node{Kind: KindRelative, Rel: filepath.ToSlash(rel)}
		}
	}
	return &Node{Kind: KindOpaque, Raw: text}
}

// ParseStored classifies a value read back from a saved session, where
// relative references were persisted in their canonical slash form. A value
// holding a path separator is taken as a relative reference; a bare name
// cannot be told apart from a plain parameter and stays opaque.
func (t *Translator) ParseStored(value interface{}) (*Value, error) {
	switch actual := value.(type) {
	case []string:
		ret := &Value{List: true}
		for _, item := range actual {
			ret.Nodes = append(ret.Nodes, t.parseStoredScalar(item))
		}
		return ret, nil
	case []interface{}:
		ret := &Value{List: true}
		for _, item := range actual {
			ret.Nodes = append(ret.Nodes, t.parseStoredScalar(toolbox.AsString(item)))
		}
		return ret, nil
	case nil:
		return nil, fmt.Errorf("parameter value was nil")
	default:
		return &Value{Nodes: []*Node{t.parseStoredScalar(toolbox.AsString(actual))}}, nil
	}
}

func (t *Translator) parseStoredScalar(text string) *Node {
	node := t.parseScalar(text)
	if node.Kind != KindOpaque {
		return node
	}
	if !filepath.IsAbs(text) && strings.Contains(text, "/") {
		return &Node{Kind: KindRelative, Rel: path.Clean(text)}
	}
	return node
}

// Render converts a parsed value to the target domain. Scalars come back as
// a string, lists as a []string; reference rendering may expand one node to
// several entries when a folder reference resolves to multiple files.
func (t *Translator) Render(ctx context.Context, value *Value, domain Domain) (interface{}, error) {
	var rendered []string
	for _, node := range value.Nodes {
		items, err := t.renderNode(ctx, node, domain)
		if err != nil {
			return nil, err
		}
		rendered = append(rendered, items...)
	}
	if value.List {
		return rendered, nil
	}
	if len(rendered) != 1 {
		return nil, fmt.Errorf("scalar value rendered to %v entries", len(rendered))
	}
	return rendered[0], nil
}

func (t *Translator) renderNode(ctx context.Context, node *Node, domain Domain) ([]string, error) {
	switch node.Kind {
	case KindOpaque, KindReference:
		return []string{node.Raw}, nil
	case KindRemote:
		if domain == DomainReference {
			return t.references(ctx, node.Raw)
		}
		return []string{node.Raw}, nil
	case KindRelative:
		switch domain {
		case DomainCanonical:
			return []string{node.Rel}, nil
		case DomainLocal:
			if t.LocalInputDir == "" {
				return nil, fmt.Errorf("no local input directory to render %v", node.Rel)
			}
			return []string{filepath.Join(t.LocalInputDir, filepath.FromSlash(node.Rel))}, nil
		case DomainRemote:
			if t.RemoteInputDir == "" {
				return nil, fmt.Errorf("no remote input directory to render %v", node.Rel)
			}
			return []string{path.Join(t.RemoteInputDir, node.Rel)}, nil
		case DomainReference:
			if t.RemoteInputDir == "" {
				return nil, fmt.Errorf("no remote input directory to render %v", node.Rel)
			}
			return t.references(ctx, path.Join(t.RemoteInputDir, node.Rel))
		}
	}
	return nil, fmt.Errorf("unsupported render domain %v", domain)
}

func (t *Translator) references(ctx context.Context, remotePath string) ([]string, error) {
	if t.Resolver == nil {
		return nil, fmt.Errorf("no resolver configured for content reference of %v", remotePath)
	}
	return t.Resolver.References(ctx, remotePath)
}

// ParseBag parses every entry of a parameter bag.
func (t *Translator) ParseBag(bag map[string]interface{}) (map[string]*Value, error) {
	ret := make(map[string]*Value, len(bag))
	for name, value := range bag {
		parsed, err := t.Parse(value)
		if err != nil {
			return nil, fmt.Errorf("parameter %v: %w", name, err)
		}
		ret[name] = parsed
	}
	return ret, nil
}

// RenderBag renders every entry of a parsed bag to the target domain.
func (t *Translator) RenderBag(ctx context.Context, bag map[string]*Value, domain Domain) (map[string]interface{}, error) {
	ret := make(map[string]interface{}, len(bag))
	for name, value := range bag {
		rendered, err := t.Render(ctx, value, domain)
		if err != nil {
			return nil, fmt.Errorf("parameter %v: %w", name, err)
		}
		ret[name] = rendered
	}
	return ret, nil
}

// underPath reports whether candidate equals root or lies beneath it.
func underPath(candidate, root string) bool {
	root = strings.TrimSuffix(root, "/")
	return candidate == root || strings.HasPrefix(candidate, root+"/")
}

func relPath(candidate, root string) string {
	root = strings.TrimSuffix(root, "/")
	if candidate == root {
		return "."
	}
	return strings.TrimPrefix(candidate, root+"/")
}
