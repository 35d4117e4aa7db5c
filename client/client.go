// Package client talks to the remote pipeline-execution platform. It exposes
// the narrow surface sessions need (submission, status, pipeline catalog and
// remote path operations) together with a classification of platform errors.
package client

import (
	"context"

	"github.com/viant/stratus/model"
)

// Execution mirrors the platform record for one pipeline run.
type Execution struct {
	Identifier string `json:"identifier"`
	Status     string `json:"status"`
	// StartDate is reported by the platform in epoch milliseconds.
	StartDate int64 `json:"startDate"`
}

// PathItem describes one entry of a remote directory listing.
type PathItem struct {
	Path        string `json:"path"`
	IsDirectory bool   `json:"isDirectory"`
	Size        int64  `json:"size"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Platform describes the remote platform deployment.
type Platform struct {
	Name                       string   `json:"platformName"`
	APIVersion                 string   `json:"APIVersion,omitempty"`
	SupportedTransferProtocols []string `json:"supportedTransferProtocols,omitempty"`
	DefaultTransferProtocol    string   `json:"defaultTransferProtocol,omitempty"`
	KillExecutionSupported     bool     `json:"isKillExecutionSupported"`
}

// Service is the execution-platform client used by sessions. Implementations
// must be safe for concurrent use: bulk transfers fan calls out across a
// worker pool.
type Service interface {
	// Submit starts one execution and returns its identifier.
	Submit(ctx context.Context, pipeline, name string, inputs map[string]interface{}, resultsLocation string) (string, error)

	// Execution returns the current record of an execution.
	Execution(ctx context.Context, id string) (*Execution, error)

	// Results returns the files an execution has produced so far.
	Results(ctx context.Context, id string) ([]*model.OutputFile, error)

	// Stdout returns the captured standard output of an execution.
	Stdout(ctx context.Context, id string) (string, error)

	// Stderr returns the captured standard error of an execution.
	Stderr(ctx context.Context, id string) (string, error)

	// Kill stops a running execution; deleteFiles also removes its remote
	// files.
	Kill(ctx context.Context, id string, deleteFiles bool) error

	// ExecutionCount returns how many executions the account has started.
	ExecutionCount(ctx context.Context) (int, error)

	// Platform describes the platform deployment behind the endpoint.
	Platform(ctx context.Context) (*Platform, error)

	// Pipelines lists the pipelines visible to the account.
	Pipelines(ctx context.Context) ([]*model.Pipeline, error)

	// Definition returns the full definition of a pipeline.
	Definition(ctx context.Context, id string) (*model.Definition, error)

	// Exists checks a remote path.
	Exists(ctx context.Context, path string) (bool, error)

	// CreateDir creates a single remote directory level.
	CreateDir(ctx context.Context, path string) error

	// Delete removes a remote path with all its content.
	Delete(ctx context.Context, path string) error

	// List returns the direct children of a remote directory.
	List(ctx context.Context, path string) ([]*PathItem, error)

	// Upload copies a local file to a remote path.
	Upload(ctx context.Context, localPath, remotePath string) error

	// Download copies a remote file to a local path.
	Download(ctx context.Context, remotePath, localPath string) error
}
