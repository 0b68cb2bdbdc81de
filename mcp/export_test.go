package mcp

func (c *Client) TestEnvVars() []string { return c.envVars }

func (c *Client) TestHeaders() map[string]string { return c.headers }
