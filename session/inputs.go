package session

import (
	"context"
	"fmt"
)

// ShareInputsFrom points this session at the dataset another session
// already uploaded, so the platform runs on it without a second copy. The
// shared dataset is not owned: Finish on this session spares it and only
// the donor session may reclaim it. Pipeline and inputs are adopted too,
// subject to the usual conflict rule.
func (s *Session) ShareInputsFrom(ctx context.Context, donor *Session) error {
	if donor == nil {
		return fmt.Errorf("session %v: no donor session to share inputs from", s.Name())
	}
	if err := s.SetRemoteInputDir(donor.RemoteInputDir()); err != nil {
		return err
	}
	donor.mux.RLock()
	localInputDir := donor.localInputDir
	inputs := donor.inputs
	stored := donor.storedInputs
	donor.mux.RUnlock()
	if localInputDir != "" {
		if err := s.SetLocalInputDir(localInputDir); err != nil {
			return err
		}
	}
	if err := s.SetPipeline(donor.PipelineID()); err != nil {
		return err
	}
	if inputs != nil {
		if err := s.SetInputs(inputs); err != nil {
			return err
		}
		s.mux.Lock()
		s.storedInputs = stored
		s.mux.Unlock()
	}
	s.mux.Lock()
	s.ownsInputs = false
	s.mux.Unlock()
	return s.Save(ctx)
}
