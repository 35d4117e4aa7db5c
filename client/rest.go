package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/stratus/model"
	"github.com/viant/stratus/tracing"
)

const (
	apiKeyHeader       = "apikey"
	contentTypeJSON    = "application/json"
	contentTypeBinary  = "application/octet-stream"
	defaultHTTPTimeout = 5 * time.Minute
)

// REST implements Service against the platform HTTP API. The zero value is
// not usable, construct it with NewREST.
type REST struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	fs         afs.Service
}

// RESTOption customizes a REST client.
type RESTOption func(*REST) error

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) RESTOption {
	return func(r *REST) error {
		r.httpClient = httpClient
		return nil
	}
}

// WithCertificate trusts the CA certificate at pemPath in addition to the
// system roots.
func WithCertificate(pemPath string) RESTOption {
	return func(r *REST) error {
		pem, err := os.ReadFile(pemPath)
		if err != nil {
			return fmt.Errorf("failed to read certificate %v: %w", pemPath, err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return fmt.Errorf("no certificate found in %v", pemPath)
		}
		r.httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		}
		return nil
	}
}

// NewREST creates a platform client for the supplied endpoint. The API key is
// sent with every request in the apikey header.
func NewREST(baseURL, apiKey string, options ...RESTOption) (*REST, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid platform URL %v: %w", baseURL, err)
	}
	ret := &REST{
		baseURL:    parsed,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		fs:         afs.New(),
	}
	for _, option := range options {
		if err := option(ret); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// Submit starts one execution of a pipeline and returns its identifier.
func (r *REST) Submit(ctx context.Context, pipeline, name string, inputs map[string]interface{}, resultsLocation string) (string, error) {
	request := map[string]interface{}{
		"name":               name,
		"pipelineIdentifier": pipeline,
		"inputValues":        inputs,
	}
	if resultsLocation != "" {
		request["resultsLocation"] = resultsLocation
	}
	var response Execution
	if err := r.doJSON(ctx, http.MethodPost, r.baseURL.JoinPath("executions"), nil, request, &response); err != nil {
		return "", err
	}
	if response.Identifier == "" {
		return "", fmt.Errorf("platform returned no execution identifier for pipeline %v", pipeline)
	}
	return response.Identifier, nil
}

// Execution returns the platform record of one execution.
func (r *REST) Execution(ctx context.Context, id string) (*Execution, error) {
	var response Execution
	if err := r.doJSON(ctx, http.MethodGet, r.baseURL.JoinPath("executions", id), nil, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Results returns the files an execution has produced so far.
func (r *REST) Results(ctx context.Context, id string) ([]*model.OutputFile, error) {
	var response []*model.OutputFile
	if err := r.doJSON(ctx, http.MethodGet, r.baseURL.JoinPath("executions", id, "results"), nil, nil, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// Stdout returns the captured standard output of an execution.
func (r *REST) Stdout(ctx context.Context, id string) (string, error) {
	return r.doText(ctx, r.baseURL.JoinPath("executions", id, "stdout"))
}

// Stderr returns the captured standard error of an execution.
func (r *REST) Stderr(ctx context.Context, id string) (string, error) {
	return r.doText(ctx, r.baseURL.JoinPath("executions", id, "stderr"))
}

// Kill stops a running execution; deleteFiles also removes its remote files.
func (r *REST) Kill(ctx context.Context, id string, deleteFiles bool) error {
	query := url.Values{"deleteFiles": []string{strconv.FormatBool(deleteFiles)}}
	request, err := r.newRequest(ctx, http.MethodDelete, r.baseURL.JoinPath("executions", id), query, nil, "")
	if err != nil {
		return err
	}
	response, span, err := r.send(ctx, request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	return r.finish(response, span, nil)
}

// ExecutionCount returns how many executions the account has started.
func (r *REST) ExecutionCount(ctx context.Context) (int, error) {
	text, err := r.doText(ctx, r.baseURL.JoinPath("executions", "count"))
	if err != nil {
		return 0, err
	}
	count, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("platform returned a non-numeric execution count %q", text)
	}
	return count, nil
}

// Platform describes the platform deployment behind the endpoint.
func (r *REST) Platform(ctx context.Context) (*Platform, error) {
	var response Platform
	if err := r.doJSON(ctx, http.MethodGet, r.baseURL.JoinPath("platform"), nil, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Pipelines lists the pipelines visible to the account.
func (r *REST) Pipelines(ctx context.Context) ([]*model.Pipeline, error) {
	var response []*model.Pipeline
	if err := r.doJSON(ctx, http.MethodGet, r.baseURL.JoinPath("pipelines"), nil, nil, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// Definition returns the full definition of a pipeline.
func (r *REST) Definition(ctx context.Context, id string) (*model.Definition, error) {
	var response model.Definition
	if err := r.doJSON(ctx, http.MethodGet, r.baseURL.JoinPath("pipelines", id), nil, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Exists checks a remote path.
func (r *REST) Exists(ctx context.Context, path string) (bool, error) {
	var response struct {
		Exists bool `json:"exists"`
	}
	if err := r.doJSON(ctx, http.MethodGet, r.pathURL(path), url.Values{"action": []string{"exists"}}, nil, &response); err != nil {
		return false, err
	}
	return response.Exists, nil
}

// CreateDir creates a single remote directory level.
func (r *REST) CreateDir(ctx context.Context, path string) error {
	return r.doJSON(ctx, http.MethodPut, r.pathURL(path), nil, nil, nil)
}

// Delete removes a remote path with all its content.
func (r *REST) Delete(ctx context.Context, path string) error {
	return r.doJSON(ctx, http.MethodDelete, r.pathURL(path), nil, nil, nil)
}

// List returns the direct children of a remote directory.
func (r *REST) List(ctx context.Context, path string) ([]*PathItem, error) {
	var response []*PathItem
	if err := r.doJSON(ctx, http.MethodGet, r.pathURL(path), url.Values{"action": []string{"list"}}, nil, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// Upload copies a local file to a remote path.
func (r *REST) Upload(ctx context.Context, localPath, remotePath string) error {
	reader, err := r.fs.OpenURL(ctx, localPath)
	if err != nil {
		return fmt.Errorf("failed to open %v: %w", localPath, err)
	}
	defer reader.Close()
	request, err := r.newRequest(ctx, http.MethodPut, r.pathURL(remotePath), nil, reader, contentTypeBinary)
	if err != nil {
		return err
	}
	response, span, err := r.send(ctx, request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	return r.finish(response, span, nil)
}

// Download copies a remote file to a local path.
func (r *REST) Download(ctx context.Context, remotePath, localPath string) error {
	request, err := r.newRequest(ctx, http.MethodGet, r.pathURL(remotePath), url.Values{"action": []string{"content"}}, nil, "")
	if err != nil {
		return err
	}
	response, span, err := r.send(ctx, request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if err = r.checkStatus(response, span); err != nil {
		return err
	}
	if err = r.fs.Upload(ctx, localPath, file.DefaultFileOsMode, response.Body); err != nil {
		return fmt.Errorf("failed to write %v: %w", localPath, err)
	}
	tracing.EndSpan(span, nil)
	return nil
}

// pathURL maps a remote path onto the path endpoint, escaping each segment.
func (r *REST) pathURL(remotePath string) *url.URL {
	segments := strings.Split(strings.Trim(remotePath, "/"), "/")
	return r.baseURL.JoinPath(append([]string{"path"}, segments...)...)
}

func (r *REST) doJSON(ctx context.Context, method string, endpoint *url.URL, query url.Values, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
		contentType = contentTypeJSON
	}
	request, err := r.newRequest(ctx, method, endpoint, query, body, contentType)
	if err != nil {
		return err
	}
	response, span, err := r.send(ctx, request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	return r.finish(response, span, out)
}

// doText fetches a plain-text endpoint.
func (r *REST) doText(ctx context.Context, endpoint *url.URL) (string, error) {
	request, err := r.newRequest(ctx, http.MethodGet, endpoint, nil, nil, "")
	if err != nil {
		return "", err
	}
	response, span, err := r.send(ctx, request)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()
	if err = r.checkStatus(response, span); err != nil {
		return "", err
	}
	data, err := io.ReadAll(response.Body)
	if err != nil {
		return "", err
	}
	tracing.EndSpan(span, nil)
	return string(data), nil
}

func (r *REST) newRequest(ctx context.Context, method string, endpoint *url.URL, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	request, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		request.URL.RawQuery = query.Encode()
	}
	request.Header.Set(apiKeyHeader, r.apiKey)
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	return request, nil
}

func (r *REST) send(ctx context.Context, request *http.Request) (*http.Response, *tracing.Span, error) {
	_, span := tracing.StartSpan(ctx, request.Method+" "+request.URL.Path, "CLIENT")
	response, err := r.httpClient.Do(request)
	if err != nil {
		tracing.EndSpan(span, err)
		return nil, nil, fmt.Errorf("platform request %v %v failed: %w", request.Method, request.URL.Path, err)
	}
	return response, span, nil
}

// checkStatus converts a non-2xx response into a platform error when the body
// carries the error envelope, or a generic HTTP error otherwise.
func (r *REST) checkStatus(response *http.Response, span *tracing.Span) error {
	span.SetStatusFromHTTPCode(response.StatusCode)
	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return nil
	}
	data, _ := io.ReadAll(response.Body)
	var envelope Error
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Code != 0 {
		tracing.EndSpan(span, &envelope)
		return &envelope
	}
	err := fmt.Errorf("platform responded %v to %v %v: %v",
		strconv.Itoa(response.StatusCode), response.Request.Method, response.Request.URL.Path, strings.TrimSpace(string(data)))
	tracing.EndSpan(span, err)
	return err
}

func (r *REST) finish(response *http.Response, span *tracing.Span, out interface{}) error {
	if err := r.checkStatus(response, span); err != nil {
		return err
	}
	defer tracing.EndSpan(span, nil)
	if out == nil {
		return nil
	}
	data, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode platform response: %w", err)
	}
	return nil
}
