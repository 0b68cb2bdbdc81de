package mcp_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/stepwise/mcp"
)

func TestStdioOptions(t *testing.T) {
	client := mcp.NewStdio("/usr/local/bin/mcp-server", []string{"--flag"},
		mcp.WithEnvVars([]string{"FOO=1"}),
		mcp.WithEnvVars([]string{"BAR=2"}),
	)
	gt.Equal(t, []string{"FOO=1", "BAR=2"}, client.TestEnvVars())
}

func TestSSEOptions(t *testing.T) {
	client := mcp.NewSSE("http://localhost:8080",
		mcp.WithHeaders(map[string]string{"Authorization": "Bearer old"}),
		mcp.WithHeaders(map[string]string{"Authorization": "Bearer new"}),
	)
	gt.Equal(t, map[string]string{"Authorization": "Bearer new"}, client.TestHeaders())
}

func TestNoTransport(t *testing.T) {
	client := mcp.NewStdio("", nil)
	_, err := client.Capabilities(context.Background())
	gt.Error(t, err)
}

func TestCloseWithoutStart(t *testing.T) {
	client := mcp.NewStdio("/usr/local/bin/mcp-server", nil)
	gt.NoError(t, client.Close())
}

func TestStdioDryRun(t *testing.T) {
	execPath, ok := os.LookupEnv("TEST_MCP_EXEC_PATH")
	if !ok {
		t.Skip("TEST_MCP_EXEC_PATH is not set")
	}

	client := mcp.NewStdio(execPath, nil)
	defer func() {
		gt.NoError(t, client.Close())
	}()

	capabilities, err := client.Capabilities(context.Background())
	gt.NoError(t, err)
	gt.A(t, capabilities).Longer(0)
	t.Log("capabilities:", capabilities)
}
