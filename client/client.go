// Package client talks to the funnel REST API. It satisfies the gateway the
// flow editor saves through, so an editor can run against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohitkumar/funnel/editor"
	"github.com/mohitkumar/funnel/flow"
	"github.com/mohitkumar/funnel/model"
	"github.com/mohitkumar/funnel/persistence"
)

var _ editor.Gateway = new(Client)

// ApiError is a non 2xx answer from the server.
type ApiError struct {
	StatusCode int
	Message    string
}

func (e ApiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseUrl    string
	httpClient *http.Client
}

func New(baseUrl string, timeout time.Duration) *Client {
	return &Client{
		baseUrl:    strings.TrimRight(baseUrl, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Create(ctx context.Context, fl model.Flow) (*model.Flow, error) {
	var created model.Flow
	if err := c.do(ctx, http.MethodPost, "/flows", "application/json", fl, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) Get(ctx context.Context, id string) (*model.Flow, error) {
	var fl model.Flow
	if err := c.do(ctx, http.MethodGet, "/flows/"+url.PathEscape(id), "", nil, &fl); err != nil {
		return nil, err
	}
	return &fl, nil
}

func (c *Client) Update(ctx context.Context, id string, fl model.Flow) (*model.Flow, error) {
	var updated model.Flow
	if err := c.do(ctx, http.MethodPut, "/flows/"+url.PathEscape(id), "application/json", fl, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) List(ctx context.Context) ([]model.Flow, error) {
	var flows []model.Flow
	if err := c.do(ctx, http.MethodGet, "/flows", "", nil, &flows); err != nil {
		return nil, err
	}
	return flows, nil
}

func (c *Client) Export(ctx context.Context, id string) (*model.ExportFile, error) {
	var file model.ExportFile
	if err := c.do(ctx, http.MethodGet, "/flows/"+url.PathEscape(id)+"/export", "", nil, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// Import uploads an export file as is. An empty format lets the server detect it.
func (c *Client) Import(ctx context.Context, data []byte, format flow.Format) (*model.Flow, error) {
	path := "/flows/import"
	if len(format) != 0 {
		path += "?format=" + url.QueryEscape(string(format))
	}
	var imported model.Flow
	if err := c.do(ctx, http.MethodPost, path, "application/octet-stream", data, &imported); err != nil {
		return nil, err
	}
	return &imported, nil
}

func (c *Client) Validate(ctx context.Context, steps []model.Step, links []model.Link) (*model.ValidationResult, error) {
	var res model.ValidationResult
	req := model.ValidationRequest{Steps: steps, Links: links}
	if err := c.do(ctx, http.MethodPost, "/flows/validate", "application/json", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Execute(ctx context.Context, id string, req model.ExecutionRequest) (*model.ExecutionResult, error) {
	var res model.ExecutionResult
	if err := c.do(ctx, http.MethodPost, "/flows/"+url.PathEscape(id)+"/execute", "application/json", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// do sends body as JSON unless it is already raw bytes and decodes a 2xx
// answer into out.
func (c *Client) do(ctx context.Context, method string, path string, contentType string, body any, out any) error {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseUrl+path, reader)
	if err != nil {
		return err
	}
	if len(contentType) != 0 {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return toError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func toError(status int, data []byte) error {
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &body); err == nil && len(body.Error) != 0 {
		msg = body.Error
	}
	apiErr := ApiError{StatusCode: status, Message: msg}
	if status == http.StatusNotFound {
		return errors.Join(persistence.ErrFlowNotFound, apiErr)
	}
	return apiErr
}
