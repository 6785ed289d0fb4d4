// Package mcp exposes the waystone search/discovery API as MCP tools for
// LLM agents, adapted from the reference client's Mark Protocol tool set:
// one tool per page-request operation, text-formatted results, stdio
// transport.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/latebit/waystone/internal/service"
)

// NewServer builds an MCP server exposing app's query and listing
// operations as tools.
func NewServer(app *service.App) *server.MCPServer {
	s := server.NewMCPServer("waystone-mcp", "0.1.0")

	h := &handler{app: app}
	s.AddTool(searchTool(), h.search)
	s.AddTool(nodesTool(), h.nodes)
	s.AddTool(peersTool(), h.peers)
	s.AddTool(citationsTool(), h.citations)
	s.AddTool(historyTool(), h.history)

	return s
}

type handler struct {
	app *service.App
}

func searchTool() mcp.Tool {
	return mcp.NewTool("waystone_search",
		mcp.WithDescription(
			"Run a full-text search over every page waystone has indexed, re-ranked by "+
				"textual relevance, PageRank authority, and node-liveness probability. "+
				"Returns the URL, node name, owner, and a relevant text snippet for each hit.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("search terms"),
		),
	)
}

func nodesTool() mcp.Tool {
	return mcp.NewTool("waystone_nodes",
		mcp.WithDescription(
			"List content-serving nodes waystone has seen announced on the overlay, "+
				"optionally filtered by name or address substring.",
		),
		mcp.WithString("query", mcp.Description("optional name/address filter")),
		mcp.WithNumber("page", mcp.Description("page number, starting at 1 (default 1)")),
	)
}

func peersTool() mcp.Tool {
	return mcp.NewTool("waystone_peers",
		mcp.WithDescription(
			"List LXMF delivery destinations (human users) waystone has seen announced, "+
				"optionally filtered by name or address substring.",
		),
		mcp.WithString("query", mcp.Description("optional name/address filter")),
		mcp.WithNumber("page", mcp.Description("page number, starting at 1 (default 1)")),
	)
}

func citationsTool() mcp.Tool {
	return mcp.NewTool("waystone_citations",
		mcp.WithDescription(
			"List the node addresses that link to the given node address, and the "+
				"total citation count used as a PageRank authority signal.",
		),
		mcp.WithString("address", mcp.Required(), mcp.Description("destination-hash address of the cited node")),
	)
}

func historyTool() mcp.Tool {
	return mcp.NewTool("waystone_history",
		mcp.WithDescription("List a remote user's past search queries, most recent first."),
		mcp.WithString("identity", mcp.Required(), mcp.Description("identity hash of the remote user")),
		mcp.WithNumber("page", mcp.Description("page number, starting at 1 (default 1)")),
	)
}

func (h *handler) search(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) { //nolint:gocritic // signature required by mcp-go
	q, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query is required"), nil
	}

	results, err := h.app.Query(q)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no results"), nil
	}

	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%s  (%s, %s)  score=%.4f\n  %s\n\n", r.URL, r.Name, r.Owner, r.Score, r.Text)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *handler) nodes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) { //nolint:gocritic // signature required by mcp-go
	q := req.GetString("query", "")
	page := max(1, req.GetInt("page", 1))

	nodes, err := h.app.GetNodesPage(page-1, 50, q)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing nodes failed: %v", err)), nil
	}
	if len(nodes) == 0 {
		return mcp.NewToolResultText("no nodes"), nil
	}

	var b strings.Builder
	for _, n := range nodes {
		fmt.Fprintf(&b, "%s  %-30s rank=%.6f last_seen=%.0f\n", n.DST, n.Name, n.Rank, n.LastSeen)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *handler) peers(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) { //nolint:gocritic // signature required by mcp-go
	q := req.GetString("query", "")
	page := max(1, req.GetInt("page", 1))

	peers, err := h.app.GetPeersPage(page-1, 50, q)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing peers failed: %v", err)), nil
	}
	if len(peers) == 0 {
		return mcp.NewToolResultText("no peers"), nil
	}

	var b strings.Builder
	for _, p := range peers {
		fmt.Fprintf(&b, "%s  %-30s last_seen=%.0f\n", p.DST, p.Name, p.LastSeen)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *handler) citations(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) { //nolint:gocritic // signature required by mcp-go
	addr, err := req.RequireString("address")
	if err != nil {
		return mcp.NewToolResultError("address is required"), nil
	}

	sources, err := h.app.CitationsOf(addr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("citations lookup failed: %v", err)), nil
	}
	count, err := h.app.CitationCount(addr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("citation count failed: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d citing sources:\n", count)
	for _, s := range sources {
		fmt.Fprintf(&b, "  %s\n", s)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *handler) history(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) { //nolint:gocritic // signature required by mcp-go
	identity, err := req.RequireString("identity")
	if err != nil {
		return mcp.NewToolResultError("identity is required"), nil
	}
	page := max(1, req.GetInt("page", 1))

	entries, err := h.app.ListHistory(identity, page-1, 50)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history lookup failed: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("no history"), nil
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%.0f  %s\n", e.Time, e.Query)
	}
	return mcp.NewToolResultText(b.String()), nil
}
