// Package mcp discovers automation capabilities from MCP servers. The planner
// advertises the discovered capability names to the reasoning service so that
// generated steps reference tools the executor can actually perform.
package mcp

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/stepwise"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// Client connects to one MCP server, local via stdio or remote via HTTP SSE,
// and lists its tools as stepwise capabilities.
type Client struct {
	// For local MCP server
	path    string
	args    []string
	envVars []string

	// For remote MCP server
	baseURL string
	headers map[string]string

	client     *client.Client
	initResult *mcp.InitializeResult

	initMutex sync.Mutex
}

// StdioOption is the option for a local MCP executable server via stdio.
type StdioOption func(*Client)

// WithEnvVars appends environment variables for the server process.
func WithEnvVars(envVars []string) StdioOption {
	return func(c *Client) {
		c.envVars = append(c.envVars, envVars...)
	}
}

// NewStdio creates a client for a local MCP server executable.
func NewStdio(path string, args []string, options ...StdioOption) *Client {
	c := &Client{
		path: path,
		args: args,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// SSEOption is the option for a remote MCP server via HTTP SSE.
type SSEOption func(*Client)

// WithHeaders sets the HTTP headers sent to the server. It replaces any
// existing headers.
func WithHeaders(headers map[string]string) SSEOption {
	return func(c *Client) {
		c.headers = headers
	}
}

// NewSSE creates a client for a remote MCP server.
func NewSSE(baseURL string, options ...SSEOption) *Client {
	c := &Client{
		baseURL: baseURL,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) start(ctx context.Context) error {
	c.initMutex.Lock()
	defer c.initMutex.Unlock()

	if c.initResult != nil {
		return nil
	}

	var tp transport.Interface
	if c.path != "" {
		tp = transport.NewStdio(c.path, c.envVars, c.args...)
	}

	if c.baseURL != "" {
		sse, err := transport.NewSSE(c.baseURL, transport.WithHeaders(c.headers))
		if err != nil {
			return goerr.Wrap(err, "failed to create SSE transport")
		}
		tp = sse
	}

	if tp == nil {
		return goerr.New("no transport")
	}

	c.client = client.NewClient(tp)

	if err := c.client.Start(ctx); err != nil {
		return goerr.Wrap(err, "failed to start MCP client")
	}

	var initRequest mcp.InitializeRequest
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "stepwise",
		Version: "0.0.1",
	}

	resp, err := c.client.Initialize(ctx, initRequest)
	if err != nil {
		return goerr.Wrap(err, "failed to initialize MCP client")
	}
	c.initResult = resp

	return nil
}

// Capabilities connects to the server if needed and returns its tools as
// capabilities for the planner.
func (c *Client) Capabilities(ctx context.Context) ([]stepwise.Capability, error) {
	if err := c.start(ctx); err != nil {
		return nil, err
	}

	resp, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tools")
	}

	capabilities := make([]stepwise.Capability, 0, len(resp.Tools))
	for _, tool := range resp.Tools {
		capabilities = append(capabilities, stepwise.Capability{
			Name:        tool.Name,
			Description: tool.Description,
		})
	}

	return capabilities, nil
}

// Close shuts down the connection to the server.
func (c *Client) Close() error {
	c.initMutex.Lock()
	defer c.initMutex.Unlock()

	if c.client == nil {
		return nil
	}
	if err := c.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close MCP client")
	}
	c.client = nil
	c.initResult = nil
	return nil
}
