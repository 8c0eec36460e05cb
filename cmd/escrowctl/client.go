package main

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

	httpinterface "github.com/agentcore/escrowd/internal/interfaces/http"
)

const requestTimeout = 30 * time.Second

type daemonClient struct {
	baseURL    string
	httpClient *http.Client
}

func getDaemonClient() (*daemonClient, error) {
	state, err := getState()
	if err != nil {
		return nil, err
	}
	address, ok := state[daemonKey]
	if !ok || address == "" {
		return nil, errors.New("set daemon with `config set daemon`")
	}
	return newDaemonClient(address)
}

func newDaemonClient(address string) (*daemonClient, error) {
	u, err := url.Parse(address)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid daemon url %s", address)
	}
	return &daemonClient{
		baseURL:    strings.TrimSuffix(address, "/") + "/v1",
		httpClient: &http.Client{Timeout: requestTimeout},
	}, nil
}

func (c *daemonClient) get(path string, query url.Values, resp interface{}) error {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	return c.do(http.MethodGet, path, nil, resp)
}

func (c *daemonClient) post(path string, req, resp interface{}) error {
	return c.do(http.MethodPost, path, req, resp)
}

func (c *daemonClient) delete(path string) error {
	return c.do(http.MethodDelete, path, nil, nil)
}

func (c *daemonClient) do(method, path string, req, resp interface{}) error {
	var body io.Reader
	if req != nil {
		buf, err := json.Marshal(req)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if req != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("unable to connect to daemon: %s", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return err
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		var errResp httpinterface.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err != nil ||
			errResp.Error.Code == "" {
			return fmt.Errorf("daemon replied with status %d", httpResp.StatusCode)
		}
		return fmt.Errorf("%s: %s", errResp.Error.Code, errResp.Error.Message)
	}

	if resp == nil || len(respBody) == 0 {
		return nil
	}
	return json.Unmarshal(respBody, resp)
}
