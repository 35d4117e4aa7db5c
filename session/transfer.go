package session

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
)

// transferJob is one file copy between the local and the remote side.
type transferJob struct {
	source string
	target string
}

// runTransfers fans jobs out across a request-scoped bounded worker pool.
// Failures from the first pass get exactly one sequential retry; whatever
// still fails is returned for the report.
func (s *Session) runTransfers(ctx context.Context, jobs []transferJob, op func(ctx context.Context, job transferJob) error) []*TransferFailure {
	type outcome struct {
		job transferJob
		err error
	}
	queue := make(chan transferJob)
	results := make(chan outcome, len(jobs))
	var wg sync.WaitGroup
	workers := s.transfers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				results <- outcome{job: job, err: op(ctx, job)}
			}
		}()
	}
	for _, job := range jobs {
		queue <- job
	}
	close(queue)
	wg.Wait()
	close(results)

	var failed []transferJob
	for result := range results {
		if result.err != nil {
			failed = append(failed, result.job)
		}
	}
	var failures []*TransferFailure
	for _, job := range failed {
		if err := op(ctx, job); err != nil {
			failures = append(failures, &TransferFailure{
				Source: job.source,
				Target: job.target,
				Reason: err.Error(),
			})
		}
	}
	return failures
}

// UploadOptions tunes a dataset upload.
type UploadOptions struct {
	// UpdateFiles re-uploads files already present on the remote side
	// instead of skipping them.
	UpdateFiles bool
}

// UploadInputs copies the local dataset to the session's remote input
// directory, skipping files already there, and checkpoints the session.
func (s *Session) UploadInputs(ctx context.Context, options *UploadOptions) (*UploadReport, error) {
	if options == nil {
		options = &UploadOptions{}
	}
	s.mux.RLock()
	localDir := s.localInputDir
	remoteDir := s.remoteInputDir
	s.mux.RUnlock()
	if localDir == "" {
		return nil, fmt.Errorf("session %v: no local input directory to upload", s.Name())
	}
	if err := Mkdirs(ctx, s.storage, remoteDir); err != nil {
		return nil, fmt.Errorf("session %v: %w", s.Name(), err)
	}

	fs := afs.New()
	objects, err := fs.List(ctx, localDir, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("session %v: failed to list %v: %w", s.Name(), localDir, err)
	}
	basePath := strings.TrimSuffix(url.Path(url.Normalize(localDir, "file")), "/")
	report := &UploadReport{}
	var jobs []transferJob
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(url.Path(object.URL()), basePath), "/")
		if rel == "" {
			continue
		}
		remote := path.Join(remoteDir, rel)
		if !options.UpdateFiles {
			ok, err := s.storage.Exists(ctx, remote)
			if err != nil {
				return nil, fmt.Errorf("session %v: failed to check %v: %w", s.Name(), remote, err)
			}
			if ok {
				report.Skipped = append(report.Skipped, remote)
				continue
			}
		}
		if dir := path.Dir(remote); dir != remoteDir {
			if err = Mkdirs(ctx, s.storage, dir); err != nil {
				return nil, fmt.Errorf("session %v: %w", s.Name(), err)
			}
		}
		jobs = append(jobs, transferJob{source: url.Path(object.URL()), target: remote})
	}

	report.Failed = s.runTransfers(ctx, jobs, func(ctx context.Context, job transferJob) error {
		return s.storage.Upload(ctx, job.source, job.target)
	})
	retained := map[string]bool{}
	for _, failure := range report.Failed {
		retained[failure.Target] = true
	}
	for _, job := range jobs {
		if !retained[job.target] {
			report.Uploaded = append(report.Uploaded, job.target)
		}
	}
	if err = s.Save(ctx); err != nil {
		return report, err
	}
	return report, nil
}
