package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/viant/stratus/tracing"
)

const (
	tokenHeader        = "Girder-Token"
	defaultHTTPTimeout = time.Minute
)

// REST implements Service against a Girder-compatible content-management
// API. Construct it with NewREST.
type REST struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
}

// NewREST creates a content-store client for the supplied endpoint. The
// token is sent with every request in the Girder-Token header.
func NewREST(baseURL, token string) (*REST, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid content-store URL %v: %w", baseURL, err)
	}
	return &REST{
		baseURL:    parsed,
		token:      token,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}, nil
}

// resource is the wire shape shared by files, items and folders.
type resource struct {
	ID        string                 `json:"_id"`
	ModelType string                 `json:"_modelType"`
	Meta      map[string]interface{} `json:"meta"`
}

// Resolve maps a path to its resource; ErrNotFound when the store knows no
// resource at that path.
func (r *REST) Resolve(ctx context.Context, path string) (*Ref, error) {
	query := url.Values{"path": []string{path}}
	var response resource
	status, err := r.doJSON(ctx, http.MethodGet, r.baseURL.JoinPath("resource", "lookup"), query, nil, &response)
	if status == http.StatusBadRequest || status == http.StatusNotFound {
		return nil, fmt.Errorf("%v: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &Ref{ID: response.ID, Kind: response.ModelType}, nil
}

// Path maps a resource back to its path.
func (r *REST) Path(ctx context.Context, ref *Ref) (string, error) {
	query := url.Values{"type": []string{ref.Kind}}
	var response string
	if _, err := r.doJSON(ctx, http.MethodGet, r.baseURL.JoinPath("resource", ref.ID, "path"), query, nil, &response); err != nil {
		return "", err
	}
	return response, nil
}

// Items lists the child items of a folder.
func (r *REST) Items(ctx context.Context, folderID string) ([]*Ref, error) {
	query := url.Values{"folderId": []string{folderID}}
	var response []*resource
	if _, err := r.doJSON(ctx, http.MethodGet, r.baseURL.JoinPath("item"), query, nil, &response); err != nil {
		return nil, err
	}
	ret := make([]*Ref, len(response))
	for i, item := range response {
		ret[i] = &Ref{ID: item.ID, Kind: KindItem}
	}
	return ret, nil
}

// Files lists the file identifiers inside an item.
func (r *REST) Files(ctx context.Context, itemID string) ([]string, error) {
	var response []*resource
	if _, err := r.doJSON(ctx, http.MethodGet, r.baseURL.JoinPath("item", itemID, "files"), nil, nil, &response); err != nil {
		return nil, err
	}
	ret := make([]string, len(response))
	for i, file := range response {
		ret[i] = file.ID
	}
	return ret, nil
}

// CreateFolder creates a folder under a parent folder and returns its
// identifier; an existing folder with the same name is reused.
func (r *REST) CreateFolder(ctx context.Context, parentID, name, description string) (string, error) {
	query := url.Values{
		"parentType":    []string{KindFolder},
		"parentId":      []string{parentID},
		"name":          []string{name},
		"reuseExisting": []string{"true"},
	}
	if description != "" {
		query.Set("description", description)
	}
	var response resource
	if _, err := r.doJSON(ctx, http.MethodPost, r.baseURL.JoinPath("folder"), query, nil, &response); err != nil {
		return "", err
	}
	return response.ID, nil
}

// Metadata returns the metadata document attached to a folder.
func (r *REST) Metadata(ctx context.Context, folderID string) (map[string]interface{}, error) {
	var response resource
	if _, err := r.doJSON(ctx, http.MethodGet, r.baseURL.JoinPath("folder", folderID), nil, nil, &response); err != nil {
		return nil, err
	}
	if response.Meta == nil {
		return map[string]interface{}{}, nil
	}
	return response.Meta, nil
}

// AddMetadata merges entries into a folder's metadata document.
func (r *REST) AddMetadata(ctx context.Context, folderID string, metadata map[string]interface{}) error {
	_, err := r.doJSON(ctx, http.MethodPut, r.baseURL.JoinPath("folder", folderID, "metadata"), nil, metadata, nil)
	return err
}

// doJSON issues one request and decodes a JSON response; the HTTP status is
// returned alongside the error so callers can map status codes.
func (r *REST) doJSON(ctx context.Context, method string, endpoint *url.URL, query url.Values, in, out interface{}) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(data)
	}
	request, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return 0, err
	}
	if len(query) > 0 {
		request.URL.RawQuery = query.Encode()
	}
	request.Header.Set(tokenHeader, r.token)
	if in != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	_, span := tracing.StartSpan(ctx, method+" "+request.URL.Path, "CLIENT")
	response, err := r.httpClient.Do(request)
	if err != nil {
		tracing.EndSpan(span, err)
		return 0, fmt.Errorf("content-store request %v %v failed: %w", method, request.URL.Path, err)
	}
	defer response.Body.Close()
	span.SetStatusFromHTTPCode(response.StatusCode)
	data, err := io.ReadAll(response.Body)
	if err != nil {
		tracing.EndSpan(span, err)
		return response.StatusCode, err
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		err = fmt.Errorf("content store responded %v to %v %v: %v",
			response.StatusCode, method, request.URL.Path, strings.TrimSpace(string(data)))
		tracing.EndSpan(span, err)
		return response.StatusCode, err
	}
	tracing.EndSpan(span, nil)
	if out == nil {
		return response.StatusCode, nil
	}
	if err = json.Unmarshal(data, out); err != nil {
		return response.StatusCode, fmt.Errorf("failed to decode content-store response: %w", err)
	}
	return response.StatusCode, nil
}
