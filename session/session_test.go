package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/stratus/client"
	"github.com/viant/stratus/model"
	"github.com/viant/stratus/translate"
)

// fakeClock advances instantly on sleep so wait loops run in test time.
type fakeClock struct {
	mux sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mux.Lock()
	defer c.mux.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return ctx.Err()
}

func testPipeline() *model.Definition {
	return &model.Definition{
		Identifier: "demo/0.1",
		Name:       "demo",
		Version:    "0.1",
		Parameters: []*model.Parameter{
			{Name: "scan", Type: model.TypeFile},
			{Name: "mode", Type: model.TypeString, IsOptional: true},
		},
	}
}

// newTestSession wires a session to an in-process platform with a local
// dataset of one file and a fake clock.
func newTestSession(t *testing.T, platform *client.Memory, name string, options ...Option) (*Session, string, string) {
	t.Helper()
	inputDir := filepath.Join(t.TempDir(), "inputs")
	outputDir := filepath.Join(t.TempDir(), "outputs")
	assert.Nil(t, os.MkdirAll(filepath.Join(inputDir, "sub"), 0o755))
	assert.Nil(t, os.WriteFile(filepath.Join(inputDir, "sub", "scan.nii"), []byte("scan-data"), 0o644))
	options = append([]Option{
		WithName(name),
		WithPipeline("demo/0.1"),
		WithLocalInputDir(inputDir),
		WithLocalOutputDir(outputDir),
		WithInputs(map[string]interface{}{
			"scan": filepath.Join(inputDir, "sub", "scan.nii"),
			"mode": "fast",
		}),
	}, options...)
	aSession, err := New(platform, options...)
	assert.Nil(t, err)
	aSession.clk = newFakeClock()
	return aSession, inputDir, outputDir
}

func TestLockInvariant(t *testing.T) {
	platform := client.NewMemory()
	aSession, _, _ := newTestSession(t, platform, "locked")

	testCases := []struct {
		property string
		current  string
		set      func(string) error
	}{
		{property: "name", current: aSession.Name(), set: aSession.SetName},
		{property: "pipeline", current: aSession.PipelineID(), set: aSession.SetPipeline},
		{property: "remote input dir", current: aSession.RemoteInputDir(), set: aSession.SetRemoteInputDir},
		{property: "remote output dir", current: aSession.RemoteOutputDir(), set: aSession.SetRemoteOutputDir},
	}
	for _, testCase := range testCases {
		assert.Nil(t, testCase.set(testCase.current), "re-assigning the current %v is a no-op", testCase.property)
		err := testCase.set(testCase.current + "-changed")
		_, ok := err.(*ConflictError)
		assert.True(t, ok, "re-assigning a different %v is a conflict", testCase.property)
	}

	assert.Nil(t, aSession.SetInputs(nil))
	err := aSession.SetInputs(map[string]interface{}{"other": true})
	_, ok := err.(*ConflictError)
	assert.True(t, ok)
}

func TestNameCharset(t *testing.T) {
	platform := client.NewMemory()
	_, err := New(platform, WithName("white space_and-1"))
	assert.Nil(t, err)
	_, err = New(platform, WithName("bad/name"))
	_, ok := err.(*InvalidNameError)
	assert.True(t, ok)
}

func TestSnapshotRoundTripAndIdempotentSave(t *testing.T) {
	ctx := context.Background()
	platform := client.NewMemory()
	aSession, inputDir, outputDir := newTestSession(t, platform, "round-trip")

	assert.Nil(t, aSession.Save(ctx))
	first, ok, err := aSession.backup.Load(ctx)
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, "sub/scan.nii", first.Inputs["scan"], "path inputs persist relative to the input dir")
	assert.EqualValues(t, "fast", first.Inputs["mode"])
	assert.EqualValues(t, inputDir, first.LocalInputDir)
	assert.EqualValues(t, outputDir, first.LocalOutputDir)

	assert.Nil(t, aSession.Save(ctx), "re-saving unchanged state succeeds")
	second, ok, err := aSession.backup.Load(ctx)
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.True(t, first.Equal(second), "an unchanged session saves to an identical record")
}

func TestRestoreAdoptsBackup(t *testing.T) {
	ctx := context.Background()
	platform := client.NewMemory()
	donor, _, outputDir := newTestSession(t, platform, "restore-me")
	assert.Nil(t, donor.Save(ctx))

	resumed, err := New(platform, WithLocalOutputDir(outputDir))
	assert.Nil(t, err)
	ok, err := resumed.Restore(ctx)
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, "restore-me", resumed.Name())
	assert.EqualValues(t, "demo/0.1", resumed.PipelineID())
	assert.EqualValues(t, donor.RemoteInputDir(), resumed.RemoteInputDir())

	resumed.mux.RLock()
	bag, err := resumed.renderInputs(ctx, translate.DomainRemote)
	resumed.mux.RUnlock()
	assert.Nil(t, err)
	assert.EqualValues(t, donor.RemoteInputDir()+"/sub/scan.nii", bag["scan"], "restored path inputs still render remotely")
}

func TestRestoreIdentityConflict(t *testing.T) {
	ctx := context.Background()
	platform := client.NewMemory()
	donor, _, outputDir := newTestSession(t, platform, "owner")
	assert.Nil(t, donor.Save(ctx))

	intruder, err := New(platform, WithName("intruder"), WithLocalOutputDir(outputDir))
	assert.Nil(t, err)
	_, err = intruder.Restore(ctx)
	_, ok := err.(*IdentityConflictError)
	assert.True(t, ok, "an assigned name never silently switches to the backup's")
}

func TestSaveIdentityConflict(t *testing.T) {
	ctx := context.Background()
	platform := client.NewMemory()
	donor, _, outputDir := newTestSession(t, platform, "owner")
	assert.Nil(t, donor.Save(ctx))

	intruder, err := New(platform, WithName("intruder"), WithLocalOutputDir(outputDir))
	assert.Nil(t, err)
	err = intruder.Save(ctx)
	var conflict *IdentityConflictError
	assert.ErrorAs(t, err, &conflict, "two names colliding on one backup location fail loudly")
}

func TestLocalOutputDirRebindsBackup(t *testing.T) {
	ctx := context.Background()
	platform := client.NewMemory()
	aSession, err := New(platform, WithName("late-binding"), WithPipeline("demo/0.1"))
	assert.Nil(t, err)
	_, ok := aSession.backup.(*PlatformBackup)
	assert.True(t, ok, "without a local output dir the checkpoint lives on the platform")

	outputDir := t.TempDir()
	assert.Nil(t, aSession.SetLocalOutputDir(outputDir))
	assert.Nil(t, aSession.Save(ctx))
	_, err = os.Stat(filepath.Join(outputDir, "session_data.json"))
	assert.Nil(t, err, "the checkpoint followed the directory assignment")

	chosen := NewFileBackup(t.TempDir())
	pinned, err := New(platform, WithName("pinned"), WithBackup(chosen))
	assert.Nil(t, err)
	assert.Nil(t, pinned.SetLocalOutputDir(t.TempDir()))
	assert.True(t, pinned.backup == chosen, "an explicit backup binding never moves")
}

func TestBackupPreservesForeignProperties(t *testing.T) {
	ctx := context.Background()
	platform := client.NewMemory()
	aSession, _, outputDir := newTestSession(t, platform, "forward-compat")
	assert.Nil(t, aSession.Save(ctx))

	record := filepath.Join(outputDir, "session_data.json")
	data, err := os.ReadFile(record)
	assert.Nil(t, err)
	patched := []byte(`{"future_field": {"x": 1},` + string(data[1:]))
	assert.Nil(t, os.WriteFile(record, patched, 0o644))

	assert.Nil(t, aSession.Save(ctx), "unknown properties do not break saving")
	saved, err := os.ReadFile(record)
	assert.Nil(t, err)
	assert.Contains(t, string(saved), "future_field", "foreign properties survive a save cycle")
}
