package session

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/viant/stratus/model"
)

// DownloadOptions tunes a result download.
type DownloadOptions struct {
	// Statuses allow-lists the executions whose outputs are fetched;
	// default is finished executions only.
	Statuses []string
	// KeepArchives leaves downloaded archives packed instead of unpacking
	// them in place.
	KeepArchives bool
}

// Download mirrors the outputs of eligible executions under the local
// output directory, skipping files already there. Failures are retried once
// and the survivors end up in the report, not in an error: the call is safe
// to repeat until the report is clean.
func (s *Session) Download(ctx context.Context, options *DownloadOptions) (*DownloadReport, error) {
	if options == nil {
		options = &DownloadOptions{}
	}
	statuses := options.Statuses
	if len(statuses) == 0 {
		statuses = []string{model.StatusFinished}
	}
	s.mux.RLock()
	localDir := s.localOutputDir
	remoteDir := s.remoteOutputDir
	s.mux.RUnlock()
	if localDir == "" {
		return nil, fmt.Errorf("session %v: no local output directory to download into", s.Name())
	}

	report := &DownloadReport{}
	var jobs []transferJob
	mimeTypes := map[string]string{}
	for id, record := range s.Inventory() {
		if !statusAllowed(record.Status, statuses) {
			continue
		}
		outputs := record.Outputs
		if len(outputs) == 0 {
			fetched, err := s.service.Results(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("session %v: failed to list results of %v: %w", s.Name(), id, err)
			}
			outputs = fetched
		}
		for _, output := range outputs {
			if output.IsDirectory {
				continue
			}
			target := filepath.Join(localDir, filepath.FromSlash(mirrorPath(output.Path, remoteDir)))
			if _, err := os.Stat(target); err == nil {
				report.Skipped = append(report.Skipped, target)
				continue
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return nil, fmt.Errorf("session %v: %w", s.Name(), err)
			}
			jobs = append(jobs, transferJob{source: output.Path, target: target})
			mimeTypes[target] = output.MimeType
		}
	}

	report.Failed = s.runTransfers(ctx, jobs, func(ctx context.Context, job transferJob) error {
		return s.storage.Download(ctx, job.source, job.target)
	})
	failed := map[string]bool{}
	for _, failure := range report.Failed {
		failed[failure.Target] = true
	}
	for _, job := range jobs {
		if failed[job.target] {
			continue
		}
		report.Downloaded = append(report.Downloaded, job.target)
		if options.KeepArchives || !isArchive(job.target, mimeTypes[job.target]) {
			continue
		}
		if err := extractInPlace(job.target); err != nil {
			s.logger.Printf("[WARN] session %v: %v", s.Name(), err)
			continue
		}
		report.Extracted = append(report.Extracted, job.target)
	}
	return report, nil
}

func statusAllowed(status string, allowed []string) bool {
	for _, candidate := range allowed {
		if candidate == status {
			return true
		}
	}
	return false
}

// mirrorPath maps a remote output path onto a path relative to the local
// output directory, mirroring the remote layout.
func mirrorPath(remote, remoteDir string) string {
	remote = path.Clean(remote)
	remoteDir = strings.TrimSuffix(remoteDir, "/")
	if remote == remoteDir {
		return path.Base(remote)
	}
	if strings.HasPrefix(remote, remoteDir+"/") {
		return strings.TrimPrefix(remote, remoteDir+"/")
	}
	return strings.TrimPrefix(remote, "/")
}
