package integrations

import (
	"context"
)

// RemoteTool adapts one server-side tool to the local Tool interface.
type RemoteTool struct {
	client *Client
	def    RemoteToolDef
}

func NewRemoteTool(client *Client, def RemoteToolDef) *RemoteTool {
	return &RemoteTool{client: client, def: def}
}

func (t *RemoteTool) Name() string        { return t.def.Name }
func (t *RemoteTool) Description() string { return t.def.Description }

func (t *RemoteTool) Parameters() map[string]any {
	if t.def.Parameters == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return t.def.Parameters
}

func (t *RemoteTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	return t.client.CallTool(ctx, t.def.Name, params)
}
