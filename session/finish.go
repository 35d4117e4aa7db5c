package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/viant/stratus/model"
)

// defaultFinishTimeout bounds the wait for one remote path to disappear.
const defaultFinishTimeout = 5 * time.Minute

// Finish reclaims the session's remote footprint. It refuses without error
// while any execution is running; deletion not confirmed within the timeout
// is reported, not raised, and a later Finish picks up where this one
// stopped. A dataset shared from another session is never deleted.
func (s *Session) Finish(ctx context.Context, timeout time.Duration) (*FinishReport, error) {
	if timeout <= 0 {
		timeout = defaultFinishTimeout
	}
	report := &FinishReport{}
	s.mux.RLock()
	running := s.inventory.Running()
	inputDir := s.remoteInputDir
	outputDir := s.remoteOutputDir
	owns := s.ownsInputs
	content := s.contentStore != nil
	s.mux.RUnlock()
	if running > 0 {
		// The in-memory view may predate execution completion; poll once
		// before refusing on it.
		if err := s.refresh(ctx); err != nil {
			return report, fmt.Errorf("session %v: %w", s.Name(), err)
		}
		s.mux.RLock()
		running = s.inventory.Running()
		s.mux.RUnlock()
	}
	if running > 0 {
		report.Refused = true
		report.Running = running
		return report, nil
	}

	owned := []string{outputDir}
	if content {
		// A content store keeps its data; only the session output directory
		// is even attempted and the dataset is left alone.
		if inputDir != outputDir {
			report.Spared = append(report.Spared, inputDir)
		}
	} else if owns && inputDir != outputDir {
		owned = append(owned, inputDir)
	} else if !owns {
		report.Spared = append(report.Spared, inputDir)
	}
	for _, remotePath := range owned {
		ok, err := s.storage.Exists(ctx, remotePath)
		if err != nil {
			return report, fmt.Errorf("session %v: failed to check %v: %w", s.Name(), remotePath, err)
		}
		if !ok {
			report.Deleted = append(report.Deleted, remotePath)
			continue
		}
		confirmed, err := DeleteAndCheck(ctx, s.storage, remotePath, timeout, s.clk)
		if err != nil {
			if errors.Is(err, ErrUnsupported) {
				report.Spared = append(report.Spared, remotePath)
				continue
			}
			return report, fmt.Errorf("session %v: %w", s.Name(), err)
		}
		if confirmed {
			report.Deleted = append(report.Deleted, remotePath)
		} else {
			report.TimedOut = append(report.TimedOut, remotePath)
		}
	}

	s.markRemoved(report.Deleted)

	// Re-saving into a just-deleted location would resurrect it; the
	// checkpoint is skipped in that case and the inventory still reflects
	// the removals in memory.
	if !underAny(s.backup.Location(), report.Deleted) {
		if err := s.Save(ctx); err != nil {
			return report, err
		}
	}
	return report, nil
}

// markRemoved closes every record whose remote results lived under a
// confirmed deleted path. A record without any known result location is
// left as is.
func (s *Session) markRemoved(deleted []string) {
	if len(deleted) == 0 {
		return
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	for _, record := range s.inventory {
		if record.Status == model.StatusRemoved {
			continue
		}
		gone := false
		if record.OutputPath != "" {
			gone = underAny(record.OutputPath, deleted)
		} else if len(record.Outputs) > 0 {
			gone = true
			for _, output := range record.Outputs {
				if !underAny(output.Path, deleted) {
					gone = false
					break
				}
			}
		}
		if gone {
			record.Status = model.StatusRemoved
		}
	}
}

func underAny(candidate string, roots []string) bool {
	for _, root := range roots {
		root = strings.TrimSuffix(root, "/")
		if candidate == root || strings.HasPrefix(candidate, root+"/") {
			return true
		}
	}
	return false
}
