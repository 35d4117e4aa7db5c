package translate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testResolver struct {
	refs map[string][]string
}

func (r *testResolver) References(ctx context.Context, remotePath string) ([]string, error) {
	refs, ok := r.refs[remotePath]
	if !ok {
		return nil, fmt.Errorf("unresolvable path %v", remotePath)
	}
	return refs, nil
}

func newTranslator() *Translator {
	return &Translator{
		LocalInputDir:     filepath.Join("/data", "study", "INPUTS"),
		RemoteInputDir:    "/vip/Home/API/study/INPUTS",
		RemotePrefix:      "/vip",
		ReferencePrefixes: []string{"girder"},
	}
}

func TestParseClassification(t *testing.T) {
	translator := newTranslator()
	testCases := []struct {
		description string
		value       string
		expectKind  Kind
		expectRel   string
	}{
		{description: "local path under input dir", value: filepath.Join("/data", "study", "INPUTS", "sub", "scan.nii"), expectKind: KindRelative, expectRel: "sub/scan.nii"},
		{description: "remote path under remote input dir", value: "/vip/Home/API/study/INPUTS/sub/scan.nii", expectKind: KindRelative, expectRel: "sub/scan.nii"},
		{description: "foreign remote path", value: "/vip/Home/other/file.txt", expectKind: KindRemote},
		{description: "content reference", value: "girder:abc123", expectKind: KindReference},
		{description: "plain parameter", value: "3.14", expectKind: KindOpaque},
		{description: "local path outside input dir", value: filepath.Join("/data", "elsewhere", "scan.nii"), expectKind: KindOpaque},
	}
	for _, testCase := range testCases {
		parsed, err := translator.Parse(testCase.value)
		if !assert.Nil(t, err, testCase.description) {
			continue
		}
		assert.EqualValues(t, 1, len(parsed.Nodes), testCase.description)
		assert.EqualValues(t, testCase.expectKind, parsed.Nodes[0].Kind, testCase.description)
		if testCase.expectRel != "" {
			assert.EqualValues(t, testCase.expectRel, parsed.Nodes[0].Rel, testCase.description)
		}
	}
}

func TestParseRelativeLocalPath(t *testing.T) {
	workingDir, err := os.Getwd()
	assert.Nil(t, err)
	translator := newTranslator()
	translator.LocalInputDir = workingDir

	parsed, err := translator.Parse(filepath.Join("sub", "scan.nii"))
	assert.Nil(t, err)
	assert.EqualValues(t, KindRelative, parsed.Nodes[0].Kind,
		"a relative value resolves against the working directory")
	assert.EqualValues(t, "sub/scan.nii", parsed.Nodes[0].Rel)

	parsed, err = translator.Parse(filepath.Join("..", "elsewhere", "scan.nii"))
	assert.Nil(t, err)
	assert.EqualValues(t, KindOpaque, parsed.Nodes[0].Kind,
		"a relative value escaping the dataset root stays opaque")
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	translator := newTranslator()

	local := filepath.Join("/data", "study", "INPUTS", "sub", "scan.nii")
	parsed, err := translator.Parse(local)
	assert.Nil(t, err)
	back, err := translator.Render(ctx, parsed, DomainLocal)
	assert.Nil(t, err)
	assert.EqualValues(t, local, back)

	remote := "/vip/Home/API/study/INPUTS/sub/scan.nii"
	parsed, err = translator.Parse(remote)
	assert.Nil(t, err)
	back, err = translator.Render(ctx, parsed, DomainRemote)
	assert.Nil(t, err)
	assert.EqualValues(t, remote, back)

	opaque := "label-only"
	parsed, err = translator.Parse(opaque)
	assert.Nil(t, err)
	for _, domain := range []Domain{DomainLocal, DomainRemote, DomainCanonical} {
		back, err = translator.Render(ctx, parsed, domain)
		assert.Nil(t, err)
		assert.EqualValues(t, opaque, back, "opaque values render as identity")
	}
}

func TestRenderDomains(t *testing.T) {
	ctx := context.Background()
	translator := newTranslator()
	parsed, err := translator.Parse([]string{
		filepath.Join("/data", "study", "INPUTS", "a.txt"),
		"/vip/Home/other/b.txt",
	})
	assert.Nil(t, err)

	remote, err := translator.Render(ctx, parsed, DomainRemote)
	assert.Nil(t, err)
	assert.EqualValues(t, []string{"/vip/Home/API/study/INPUTS/a.txt", "/vip/Home/other/b.txt"}, remote)

	canonical, err := translator.Render(ctx, parsed, DomainCanonical)
	assert.Nil(t, err)
	assert.EqualValues(t, []string{"a.txt", "/vip/Home/other/b.txt"}, canonical)
}

func TestRenderReferences(t *testing.T) {
	ctx := context.Background()
	translator := newTranslator()
	translator.Resolver = &testResolver{refs: map[string][]string{
		"/vip/Home/API/study/INPUTS/folder": {"girder:f1", "girder:f2"},
	}}

	parsed, err := translator.Parse([]string{filepath.Join("/data", "study", "INPUTS", "folder")})
	assert.Nil(t, err)
	refs, err := translator.Render(ctx, parsed, DomainReference)
	assert.Nil(t, err)
	assert.EqualValues(t, []string{"girder:f1", "girder:f2"}, refs, "a folder expands to its files")

	parsed, err = translator.Parse("girder:abc")
	assert.Nil(t, err)
	ref, err := translator.Render(ctx, parsed, DomainReference)
	assert.Nil(t, err)
	assert.EqualValues(t, "girder:abc", ref, "existing references pass through")

	translator.Resolver = nil
	parsed, err = translator.Parse("/vip/Home/other/b.txt")
	assert.Nil(t, err)
	_, err = translator.Render(ctx, parsed, DomainReference)
	assert.NotNil(t, err, "reference rendering needs a resolver")
}

func TestParseStored(t *testing.T) {
	ctx := context.Background()
	translator := newTranslator()

	parsed, err := translator.ParseStored("sub/scan.nii")
	assert.Nil(t, err)
	assert.EqualValues(t, KindRelative, parsed.Nodes[0].Kind, "stored relative references are recognized by their separator")
	remote, err := translator.Render(ctx, parsed, DomainRemote)
	assert.Nil(t, err)
	assert.EqualValues(t, "/vip/Home/API/study/INPUTS/sub/scan.nii", remote)

	parsed, err = translator.ParseStored("fast")
	assert.Nil(t, err)
	assert.EqualValues(t, KindOpaque, parsed.Nodes[0].Kind, "a bare name stays a plain parameter")

	parsed, err = translator.ParseStored("/vip/Home/other/b.txt")
	assert.Nil(t, err)
	assert.EqualValues(t, KindRemote, parsed.Nodes[0].Kind)
}

func TestParseBag(t *testing.T) {
	translator := newTranslator()
	bag, err := translator.ParseBag(map[string]interface{}{
		"scan":  filepath.Join("/data", "study", "INPUTS", "scan.nii"),
		"sigma": 2,
		"tags":  []interface{}{"a", "b"},
	})
	assert.Nil(t, err)
	assert.EqualValues(t, KindRelative, bag["scan"].Nodes[0].Kind)
	assert.EqualValues(t, "2", bag["sigma"].Nodes[0].Raw)
	assert.True(t, bag["tags"].List)
}
