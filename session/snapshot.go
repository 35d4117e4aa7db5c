package session

import (
	"encoding/json"

	"github.com/viant/stratus/model"
)

// Snapshot is the persisted form of a session. Path values inside Inputs
// are stored in their portable relative encoding so a snapshot restores on
// a different mount point or machine.
type Snapshot struct {
	Name            string                 `json:"session_name"`
	PipelineID      string                 `json:"pipeline_id,omitempty"`
	Inputs          map[string]interface{} `json:"input_settings,omitempty"`
	LocalInputDir   string                 `json:"local_input_dir,omitempty"`
	LocalOutputDir  string                 `json:"local_output_dir,omitempty"`
	RemoteInputDir  string                 `json:"remote_input_dir,omitempty"`
	RemoteOutputDir string                 `json:"remote_output_dir,omitempty"`
	OwnsInputs      bool                   `json:"owns_inputs"`
	Workflows       model.Inventory        `json:"workflows,omitempty"`

	// Extra holds properties written by other or newer clients; they are
	// preserved across save cycles, never interpreted.
	Extra map[string]json.RawMessage `json:"-"`
}

// snapshotAlias avoids recursing into the custom JSON methods.
type snapshotAlias Snapshot

// MarshalJSON renders the known fields merged over any preserved extra
// properties.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal((*snapshotAlias)(s))
	if err != nil {
		return nil, err
	}
	if len(s.Extra) == 0 {
		return known, nil
	}
	merged := map[string]json.RawMessage{}
	for key, value := range s.Extra {
		merged[key] = value
	}
	var ownKeys map[string]json.RawMessage
	if err = json.Unmarshal(known, &ownKeys); err != nil {
		return nil, err
	}
	for key, value := range ownKeys {
		merged[key] = value
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes the known fields and keeps everything else in
// Extra.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*snapshotAlias)(s)); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, known := range snapshotKeys {
		delete(all, known)
	}
	if len(all) > 0 {
		s.Extra = all
	}
	return nil
}

var snapshotKeys = []string{
	"session_name", "pipeline_id", "input_settings",
	"local_input_dir", "local_output_dir",
	"remote_input_dir", "remote_output_dir",
	"owns_inputs", "workflows",
}

// Equal reports whether two snapshots persist identically.
func (s *Snapshot) Equal(other *Snapshot) bool {
	left, err := json.Marshal(s)
	if err != nil {
		return false
	}
	right, err := json.Marshal(other)
	if err != nil {
		return false
	}
	return string(left) == string(right)
}
