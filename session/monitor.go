package session

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/stratus/model"
)

// defaultRefresh is the monitor cadence when the caller passes none.
const defaultRefresh = 30 * time.Second

// Monitor refreshes every live execution until none is running, sweeping
// every refresh interval measured between sweep starts. A communication
// failure is not retried here: progress recorded so far is checkpointed and
// the error surfaces, leaving the retry decision with the caller. The final
// state is checkpointed too.
func (s *Session) Monitor(ctx context.Context, refresh time.Duration) (*MonitorReport, error) {
	if refresh <= 0 {
		refresh = defaultRefresh
	}
	report := &MonitorReport{}
	s.mux.RLock()
	size := len(s.inventory)
	s.mux.RUnlock()
	if size == 0 {
		report.Empty = true
		return report, nil
	}
	for {
		sweepStart := s.clk.Now()
		if err := s.refresh(ctx); err != nil {
			if saveErr := s.Save(ctx); saveErr != nil {
				s.logger.Printf("[WARN] session %v: checkpoint after refresh failure also failed: %v", s.Name(), saveErr)
			}
			return report, fmt.Errorf("session %v: %w", s.Name(), err)
		}
		report.Refreshes++
		s.mux.RLock()
		running := s.inventory.Running()
		s.mux.RUnlock()
		if running == 0 {
			break
		}
		// Sweep duration counts against the interval so the cadence holds
		// between sweep starts.
		if err := s.clk.Sleep(ctx, refresh-s.clk.Now().Sub(sweepStart)); err != nil {
			if saveErr := s.Save(ctx); saveErr != nil {
				s.logger.Printf("[WARN] session %v: checkpoint on interrupted monitor also failed: %v", s.Name(), saveErr)
			}
			return report, err
		}
	}
	if err := s.Save(ctx); err != nil {
		return report, err
	}
	s.mux.RLock()
	report.ByStatus = s.inventory.ByStatus()
	s.mux.RUnlock()
	return report, nil
}

// refresh updates status, start time and outputs of every non-removed
// execution once.
func (s *Session) refresh(ctx context.Context) error {
	for _, id := range s.Inventory().IDs() {
		s.mux.RLock()
		record := s.inventory[id]
		removed := record.Status == model.StatusRemoved
		s.mux.RUnlock()
		if removed {
			continue
		}
		execution, err := s.service.Execution(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to refresh execution %v: %w", id, err)
		}
		update := &model.Workflow{Status: execution.Status, Start: model.FormatStart(execution.StartDate)}
		if execution.Status != model.StatusRunning {
			if outputs, resultsErr := s.service.Results(ctx, id); resultsErr == nil {
				update.Outputs = outputs
			}
		}
		s.mux.Lock()
		record.Update(update)
		s.mux.Unlock()
	}
	return nil
}
