package stratus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/stratus/client"
	"github.com/viant/stratus/model"
	"github.com/viant/stratus/resolver"
	"github.com/viant/stratus/session"
)

func testPlatform() *client.Memory {
	platform := client.NewMemory()
	platform.RegisterPipeline(&model.Definition{
		Identifier: "freesurfer/1.0",
		Name:       "freesurfer",
		Version:    "1.0",
		Parameters: []*model.Parameter{{Name: "scan", Type: model.TypeFile}},
	})
	platform.RegisterPipeline(&model.Definition{
		Identifier: "demo/0.1",
		Name:       "demo",
		Version:    "0.1",
		Parameters: []*model.Parameter{{Name: "file", Type: model.TypeFile}},
	})
	return platform
}

func TestServiceHandshake(t *testing.T) {
	ctx := context.Background()
	svc, err := New(ctx, "unused-key", WithClient(testPlatform()))
	assert.Nil(t, err)
	assert.EqualValues(t, 2, len(svc.Pipelines()))

	_, err = New(ctx, "unused-key", WithClient(client.NewMemory()), WithEndpoint(""))
	assert.NotNil(t, err, "an empty endpoint fails validation")
}

func TestFindPipelines(t *testing.T) {
	ctx := context.Background()
	svc, err := New(ctx, "unused-key", WithClient(testPlatform()))
	assert.Nil(t, err)

	testCases := []struct {
		description string
		pattern     string
		expect      int
	}{
		{description: "partial match", pattern: "free", expect: 1},
		{description: "case insensitive", pattern: "FREESURFER", expect: 1},
		{description: "empty pattern matches all", pattern: "", expect: 2},
		{description: "no match", pattern: "quantum", expect: 0},
	}
	for _, testCase := range testCases {
		found := svc.FindPipelines(testCase.pattern)
		assert.EqualValues(t, testCase.expect, len(found), testCase.description)
	}
}

func TestDefinitionMemoized(t *testing.T) {
	ctx := context.Background()
	svc, err := New(ctx, "unused-key", WithClient(testPlatform()))
	assert.Nil(t, err)

	first, err := svc.Definition(ctx, "demo/0.1")
	assert.Nil(t, err)
	second, err := svc.Definition(ctx, "demo/0.1")
	assert.Nil(t, err)
	assert.True(t, first == second, "repeated lookups reuse the cached definition")

	_, err = svc.Definition(ctx, "absent/9.9")
	assert.NotNil(t, err)
}

func TestNewSessionDefaults(t *testing.T) {
	ctx := context.Background()
	platform := testPlatform()
	svc, err := New(ctx, "unused-key",
		WithClient(platform),
		WithConfig(&Config{Endpoint: DefaultEndpoint, RemoteBase: "/vip/Home/ACME", Transfers: 2}))
	assert.Nil(t, err)

	sess, err := svc.NewSession(session.WithName("study-7"))
	assert.Nil(t, err)
	assert.EqualValues(t, "/vip/Home/ACME/study-7/INPUTS", sess.RemoteInputDir())
	assert.EqualValues(t, "/vip/Home/ACME/study-7/OUTPUTS", sess.RemoteOutputDir())
}

func TestNewContentSession(t *testing.T) {
	ctx := context.Background()
	store := resolver.NewMemory()
	store.Add("/collection/study/OUTPUTS", resolver.KindFolder)

	svc, err := New(ctx, "unused-key", WithClient(testPlatform()))
	assert.Nil(t, err)
	_, err = svc.NewContentSession("/collection/study/OUTPUTS")
	assert.NotNil(t, err, "a content session needs a content store")

	svc, err = New(ctx, "unused-key",
		WithClient(testPlatform()),
		WithContentStore("girder", store))
	assert.Nil(t, err)
	sess, err := svc.NewContentSession("/collection/study/OUTPUTS", session.WithName("study-7"))
	assert.Nil(t, err)
	assert.EqualValues(t, "/collection/study/OUTPUTS", sess.RemoteOutputDir())

	assert.Nil(t, sess.Save(ctx))
	restored, err := svc.NewContentSession("/collection/study/OUTPUTS", session.WithName("study-7"))
	assert.Nil(t, err)
	ok, err := restored.Restore(ctx)
	assert.Nil(t, err)
	assert.True(t, ok, "the record persisted in the folder metadata")
}
