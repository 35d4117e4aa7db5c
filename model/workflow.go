package model

import (
	"sort"
	"time"
)

// Workflow statuses the session state machine acts on. The remote service
// owns the status vocabulary; any other string is carried through untouched.
const (
	StatusRunning  = "Running"
	StatusFinished = "Finished"
	StatusKilled   = "Killed"
	StatusRemoved  = "Removed"
)

// StartLayout is the human-readable format used to persist execution start
// times in the session record.
const StartLayout = "2006/01/02 15:04:05"

// OutputFile describes one file returned by a remote execution.
type OutputFile struct {
	Path        string `json:"path"`
	IsDirectory bool   `json:"isDirectory"`
	Size        int64  `json:"size"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Workflow tracks one remote pipeline execution within a session. The
// execution identifier is the inventory key and is not repeated here.
type Workflow struct {
	Status string `json:"status"`
	Start  string `json:"start,omitempty"`
	// OutputPath is the dedicated remote results folder created for this
	// execution; empty for flavors that share the session output directory.
	OutputPath string        `json:"output_path,omitempty"`
	Outputs    []*OutputFile `json:"outputs"`
}

// Running reports whether the execution is still running remotely.
func (w *Workflow) Running() bool {
	return w.Status == StatusRunning
}

// Update overwrites status, start time and outputs from a fresh remote
// record. A Removed status is terminal and never reverted.
func (w *Workflow) Update(from *Workflow) {
	if w.Status == StatusRemoved {
		return
	}
	w.Status = from.Status
	if from.Start != "" {
		w.Start = from.Start
	}
	if from.Outputs != nil {
		w.Outputs = from.Outputs
	}
}

// Clone returns a deep copy of the workflow record.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	out := &Workflow{Status: w.Status, Start: w.Start, OutputPath: w.OutputPath}
	if w.Outputs != nil {
		out.Outputs = make([]*OutputFile, len(w.Outputs))
		for i, file := range w.Outputs {
			cp := *file
			out.Outputs[i] = &cp
		}
	}
	return out
}

// FormatStart renders an epoch-milliseconds start date in StartLayout,
// local time.
func FormatStart(millis int64) string {
	if millis == 0 {
		return ""
	}
	return time.UnixMilli(millis).Format(StartLayout)
}

// Inventory maps execution identifiers to their workflow records. Records
// are created at submission, mutated by polling and never deleted; a run
// whose remote data is gone keeps its record with StatusRemoved.
type Inventory map[string]*Workflow

// IDs returns the execution identifiers in deterministic order.
func (i Inventory) IDs() []string {
	ids := make([]string, 0, len(i))
	for id := range i {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Running returns the number of executions still running remotely.
func (i Inventory) Running() int {
	count := 0
	for _, workflow := range i {
		if workflow.Running() {
			count++
		}
	}
	return count
}

// ByStatus sorts execution identifiers by status.
func (i Inventory) ByStatus() map[string][]string {
	ret := map[string][]string{}
	for _, id := range i.IDs() {
		status := i[id].Status
		ret[status] = append(ret[status], id)
	}
	return ret
}

// Clone returns a deep copy of the inventory.
func (i Inventory) Clone() Inventory {
	if i == nil {
		return nil
	}
	out := make(Inventory, len(i))
	for id, workflow := range i {
		out[id] = workflow.Clone()
	}
	return out
}
