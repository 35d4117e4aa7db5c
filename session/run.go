package session

import (
	"context"
	"time"
)

// RunReport aggregates the step reports of one end-to-end Run.
type RunReport struct {
	Upload   *UploadReport
	Launch   *LaunchReport
	Monitor  *MonitorReport
	Download *DownloadReport
}

// Run drives a full cycle: upload the dataset when one is configured,
// launch count executions, watch them to completion and fetch the results.
// It stops at the first failing step; every completed step is already
// checkpointed, so calling Run again resumes rather than redoing work.
func (s *Session) Run(ctx context.Context, count int, refresh time.Duration, overrides ...Option) (*RunReport, error) {
	report := &RunReport{}
	var err error
	s.mux.RLock()
	hasDataset := s.localInputDir != ""
	s.mux.RUnlock()
	if hasDataset {
		if report.Upload, err = s.UploadInputs(ctx, nil); err != nil {
			return report, err
		}
	}
	if report.Launch, err = s.Launch(ctx, count, overrides...); err != nil {
		return report, err
	}
	if report.Monitor, err = s.Monitor(ctx, refresh); err != nil {
		return report, err
	}
	s.mux.RLock()
	hasResults := s.localOutputDir != ""
	s.mux.RUnlock()
	if hasResults {
		report.Download, err = s.Download(ctx, nil)
	}
	return report, err
}
