package client

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/stratus/model"
)

type memoryExecution struct {
	record  *Execution
	outputs []*model.OutputFile
	stdout  string
	stderr  string
	// ticks counts the Execution polls left before the run finishes on its
	// own; negative means it only finishes through Complete.
	ticks int
}

// Memory is an in-process Service used by tests. It keeps pipelines, a remote
// path namespace and executions in maps and is safe for concurrent use.
type Memory struct {
	mux         sync.RWMutex
	definitions map[string]*model.Definition
	files       map[string][]byte
	dirs        map[string]bool
	executions  map[string]*memoryExecution
	counter     int
	submitErr   error
	submitsLeft int
	autoFinish  int
	fs          afs.Service
}

// NewMemory creates an empty in-process platform with the root directory
// present.
func NewMemory() *Memory {
	return &Memory{
		definitions: map[string]*model.Definition{},
		files:       map[string][]byte{},
		dirs:        map[string]bool{"/": true, "/vip": true},
		executions:  map[string]*memoryExecution{},
		autoFinish:  -1,
		fs:          afs.New(),
	}
}

// RegisterPipeline makes a pipeline available for submission.
func (m *Memory) RegisterPipeline(definition *model.Definition) {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.definitions[definition.Identifier] = definition
}

// FailSubmissions makes every following Submit return err; pass nil to
// restore normal behaviour.
func (m *Memory) FailSubmissions(err error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.submitErr = err
	m.submitsLeft = 0
}

// FailSubmissionsAfter lets the next successes submissions through and
// fails every one after them with err.
func (m *Memory) FailSubmissionsAfter(successes int, err error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.submitErr = err
	m.submitsLeft = successes
}

// AutoFinishAfter makes every new execution finish on its own after the
// given number of status polls.
func (m *Memory) AutoFinishAfter(polls int) {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.autoFinish = polls
}

// Complete moves an execution to the finished state with the supplied
// outputs.
func (m *Memory) Complete(id string, outputs []*model.OutputFile) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	execution, ok := m.executions[id]
	if !ok {
		return fmt.Errorf("unknown execution %v", id)
	}
	execution.record.Status = model.StatusFinished
	execution.outputs = outputs
	return nil
}

// SetLogs records the console output Stdout and Stderr will report for an
// execution.
func (m *Memory) SetLogs(id, stdout, stderr string) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	execution, ok := m.executions[id]
	if !ok {
		return fmt.Errorf("unknown execution %v", id)
	}
	execution.stdout = stdout
	execution.stderr = stderr
	return nil
}

// Submit starts an in-process execution.
func (m *Memory) Submit(ctx context.Context, pipeline, name string, inputs map[string]interface{}, resultsLocation string) (string, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.submitErr != nil {
		if m.submitsLeft == 0 {
			return "", m.submitErr
		}
		m.submitsLeft--
	}
	definition, ok := m.definitions[pipeline]
	if !ok {
		return "", NewError(codeBadInput, fmt.Sprintf("pipeline %v does not exist", pipeline))
	}
	for _, required := range definition.Required() {
		if _, ok := inputs[required]; !ok {
			return "", NewError(codeBadInput, fmt.Sprintf("missing required input %v", required))
		}
	}
	m.counter++
	id := fmt.Sprintf("exec-%04d", m.counter)
	m.executions[id] = &memoryExecution{
		record: &Execution{
			Identifier: id,
			Status:     model.StatusRunning,
			StartDate:  time.Now().UnixMilli(),
		},
		ticks: m.autoFinish,
	}
	return id, nil
}

// Execution returns the record of one execution, advancing auto-finishing
// runs by one poll.
func (m *Memory) Execution(ctx context.Context, id string) (*Execution, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	execution, ok := m.executions[id]
	if !ok {
		return nil, NewError(codeBadInput, fmt.Sprintf("unknown execution %v", id))
	}
	if execution.record.Status == model.StatusRunning && execution.ticks >= 0 {
		if execution.ticks == 0 {
			execution.record.Status = model.StatusFinished
		} else {
			execution.ticks--
		}
	}
	ret := *execution.record
	return &ret, nil
}

// Results returns the outputs recorded for an execution.
func (m *Memory) Results(ctx context.Context, id string) ([]*model.OutputFile, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	execution, ok := m.executions[id]
	if !ok {
		return nil, NewError(codeBadInput, fmt.Sprintf("unknown execution %v", id))
	}
	return execution.outputs, nil
}

// Stdout returns the recorded standard output of an execution.
func (m *Memory) Stdout(ctx context.Context, id string) (string, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	execution, ok := m.executions[id]
	if !ok {
		return "", NewError(codeBadInput, fmt.Sprintf("unknown execution %v", id))
	}
	return execution.stdout, nil
}

// Stderr returns the recorded standard error of an execution.
func (m *Memory) Stderr(ctx context.Context, id string) (string, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	execution, ok := m.executions[id]
	if !ok {
		return "", NewError(codeBadInput, fmt.Sprintf("unknown execution %v", id))
	}
	return execution.stderr, nil
}

// Kill stops a running execution; deleteFiles also drops its recorded
// outputs.
func (m *Memory) Kill(ctx context.Context, id string, deleteFiles bool) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	execution, ok := m.executions[id]
	if !ok {
		return NewError(codeBadInput, fmt.Sprintf("unknown execution %v", id))
	}
	if execution.record.Status == model.StatusRunning {
		execution.record.Status = model.StatusKilled
	}
	if deleteFiles {
		execution.outputs = nil
	}
	return nil
}

// ExecutionCount returns how many executions were submitted so far.
func (m *Memory) ExecutionCount(ctx context.Context) (int, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	return m.counter, nil
}

// Platform describes the in-process platform.
func (m *Memory) Platform(ctx context.Context) (*Platform, error) {
	return &Platform{
		Name:                   "memory",
		APIVersion:             "1.0",
		KillExecutionSupported: true,
	}, nil
}

// Pipelines lists the registered pipelines.
func (m *Memory) Pipelines(ctx context.Context) ([]*model.Pipeline, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	var ret []*model.Pipeline
	for _, definition := range m.definitions {
		ret = append(ret, &model.Pipeline{
			Identifier: definition.Identifier,
			Name:       definition.Name,
			Version:    definition.Version,
			CanExecute: true,
		})
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Identifier < ret[j].Identifier })
	return ret, nil
}

// Definition returns a registered pipeline definition.
func (m *Memory) Definition(ctx context.Context, id string) (*model.Definition, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	definition, ok := m.definitions[id]
	if !ok {
		return nil, NewError(codeBadInput, fmt.Sprintf("pipeline %v does not exist", id))
	}
	return definition, nil
}

// Exists checks a path in the in-process namespace.
func (m *Memory) Exists(ctx context.Context, aPath string) (bool, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	aPath = normalizePath(aPath)
	if m.dirs[aPath] {
		return true, nil
	}
	_, ok := m.files[aPath]
	return ok, nil
}

// CreateDir creates one directory level; the parent has to exist already.
func (m *Memory) CreateDir(ctx context.Context, aPath string) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	aPath = normalizePath(aPath)
	if m.dirs[aPath] {
		return nil
	}
	parent := path.Dir(aPath)
	if !m.dirs[parent] {
		return NewError(codeBadInput, fmt.Sprintf("parent of %v does not exist", aPath))
	}
	m.dirs[aPath] = true
	return nil
}

// Delete removes a path with everything under it.
func (m *Memory) Delete(ctx context.Context, aPath string) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	aPath = normalizePath(aPath)
	prefix := aPath + "/"
	for candidate := range m.dirs {
		if candidate == aPath || strings.HasPrefix(candidate, prefix) {
			delete(m.dirs, candidate)
		}
	}
	for candidate := range m.files {
		if candidate == aPath || strings.HasPrefix(candidate, prefix) {
			delete(m.files, candidate)
		}
	}
	return nil
}

// List returns the direct children of a directory.
func (m *Memory) List(ctx context.Context, aPath string) ([]*PathItem, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	aPath = normalizePath(aPath)
	if !m.dirs[aPath] {
		return nil, NewError(codeBadInput, fmt.Sprintf("directory %v does not exist", aPath))
	}
	var ret []*PathItem
	for candidate := range m.dirs {
		if path.Dir(candidate) == aPath && candidate != aPath {
			ret = append(ret, &PathItem{Path: candidate, IsDirectory: true})
		}
	}
	for candidate, content := range m.files {
		if path.Dir(candidate) == aPath {
			ret = append(ret, &PathItem{Path: candidate, Size: int64(len(content))})
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Path < ret[j].Path })
	return ret, nil
}

// Upload copies a local file into the in-process namespace.
func (m *Memory) Upload(ctx context.Context, localPath, remotePath string) error {
	data, err := m.fs.DownloadWithURL(ctx, localPath)
	if err != nil {
		return fmt.Errorf("failed to read %v: %w", localPath, err)
	}
	m.mux.Lock()
	defer m.mux.Unlock()
	m.files[normalizePath(remotePath)] = data
	return nil
}

// Download copies an in-process file to a local path.
func (m *Memory) Download(ctx context.Context, remotePath, localPath string) error {
	m.mux.RLock()
	data, ok := m.files[normalizePath(remotePath)]
	m.mux.RUnlock()
	if !ok {
		return NewError(codeBadInput, fmt.Sprintf("file %v does not exist", remotePath))
	}
	if err := m.fs.Upload(ctx, localPath, file.DefaultFileOsMode, strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("failed to write %v: %w", localPath, err)
	}
	return nil
}

// Put stores raw content at a remote path, creating missing parents; tests
// use it to seed the namespace.
func (m *Memory) Put(remotePath string, data []byte) {
	m.mux.Lock()
	defer m.mux.Unlock()
	remotePath = normalizePath(remotePath)
	for parent := path.Dir(remotePath); parent != "/"; parent = path.Dir(parent) {
		m.dirs[parent] = true
	}
	m.files[remotePath] = data
}

func normalizePath(aPath string) string {
	if !strings.HasPrefix(aPath, "/") {
		aPath = "/" + aPath
	}
	return path.Clean(aPath)
}
