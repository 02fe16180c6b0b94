package finder

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/advfind/kit"
)

// RegisterMCP registers the engine operations as MCP tools.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	for _, s := range e.services() {
		tool := &mcp.Tool{
			Name:        s.name,
			Description: s.description,
			InputSchema: s.schema,
		}
		kit.RegisterMCPTool(srv, tool, s.call, kit.DecodeJSON(s.newReq))
	}
}
