package handleops

import (
	"context"
	"fmt"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/httpx"
)

// HandleRequest is the handle API create/update payload.
type HandleRequest struct {
	URI    string `json:"uri"`
	Prefix string `json:"prefix,omitempty"`
	Suffix string `json:"suffix,omitempty"`
}

// HandleClient talks to the NVA handle API.
type HandleClient struct {
	api       *httpx.Client
	apiDomain string
}

// NewHandleClient creates a HandleClient. The api client must carry
// backend credentials.
func NewHandleClient(api *httpx.Client, apiDomain string) *HandleClient {
	return &HandleClient{api: api, apiDomain: apiDomain}
}

// CreateHandle registers a new handle pointing at request.URI.
func (c *HandleClient) CreateHandle(ctx context.Context, request HandleRequest) (map[string]interface{}, error) {
	var result map[string]interface{}
	endpoint := fmt.Sprintf("https://%s/handle/", c.apiDomain)
	if err := c.api.DoJSON(ctx, "POST", endpoint, request, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateHandle repoints an existing handle.
func (c *HandleClient) UpdateHandle(ctx context.Context, prefix, suffix string, request HandleRequest) (map[string]interface{}, error) {
	var result map[string]interface{}
	endpoint := fmt.Sprintf("https://%s/handle/%s/%s", c.apiDomain, prefix, suffix)
	if err := c.api.DoJSON(ctx, "PUT", endpoint, request, &result); err != nil {
		return nil, err
	}
	return result, nil
}
