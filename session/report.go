package session

import "github.com/viant/stratus/model"

// LaunchReport summarizes one launch call.
type LaunchReport struct {
	// Submitted lists the execution identifiers started by this call, in
	// submission order.
	Submitted []string
	// Warnings carries non-blocking validation findings, such as unknown
	// parameter keys.
	Warnings []string
}

// MonitorReport summarizes one monitor call.
type MonitorReport struct {
	// Empty is set when the session had no executions to watch.
	Empty bool
	// Refreshes counts how many full status sweeps ran.
	Refreshes int
	// ByStatus groups execution identifiers by their final status.
	ByStatus map[string][]string
}

// Done reports whether no execution is left running.
func (r *MonitorReport) Done() bool {
	return len(r.ByStatus[model.StatusRunning]) == 0
}

// TransferFailure describes one file that could not be copied.
type TransferFailure struct {
	// Source and Target are the copy endpoints, local or remote depending
	// on the transfer direction.
	Source string
	Target string
	Reason string
}

// UploadReport summarizes one dataset upload.
type UploadReport struct {
	// Uploaded lists the local files copied to the platform.
	Uploaded []string
	// Skipped lists the files already present remotely.
	Skipped []string
	// Failed lists the files that could not be copied after the retry
	// pass; re-running the upload retries only these.
	Failed []*TransferFailure
}

// DownloadReport summarizes one result download.
type DownloadReport struct {
	// Downloaded lists the files fetched by this call.
	Downloaded []string
	// Skipped lists the files already present locally.
	Skipped []string
	// Extracted lists the archives unpacked in place.
	Extracted []string
	// Failed lists the files still failing after the retry pass.
	Failed []*TransferFailure
}

// FinishReport summarizes one finish call.
type FinishReport struct {
	// Refused is set when executions were still running; nothing was
	// deleted.
	Refused bool
	// Running is the number of executions blocking the finish.
	Running int
	// Deleted lists the remote paths whose removal was confirmed.
	Deleted []string
	// TimedOut lists the paths whose removal was requested but not yet
	// confirmed within the timeout; calling finish again is safe.
	TimedOut []string
	// Spared lists remote paths left untouched, either shared from another
	// session or held by a storage backend that keeps its data.
	Spared []string
}

// Done reports whether every owned remote path is confirmed gone.
func (r *FinishReport) Done() bool {
	return !r.Refused && len(r.TimedOut) == 0
}
