package main

import (
	"context"

	"github.com/matthewjhunter/visiondeck"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverVersion = "0.1.0"

// server is the visiondeck MCP server.
type server struct {
	session *visiondeck.Session
	monitor *feedMonitor // nil when feed probing is disabled
	mcp     *mcp.Server
}

func newServer(session *visiondeck.Session) *server {
	s := &server{
		session: session,
		mcp:     mcp.NewServer(&mcp.Implementation{Name: "visiondeck", Version: serverVersion}, nil),
	}
	s.registerTools()
	return s
}

func (s *server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_config",
		Description: "Get the current video enhancement configuration (CLAHE contrast, sharpen amount, denoise, video source) and write-through statistics.",
	}, s.getConfig)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "set_source",
		Description: "Switch the backend's video source. Use a camera device index such as \"0\" or a file path on the backend host.",
	}, s.setSource)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "toggle_clahe",
		Description: "Flip CLAHE contrast enhancement on or off.",
	}, s.toggleClahe)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "toggle_denoise",
		Description: "Flip denoising on or off. Denoising is slow on the backend.",
	}, s.toggleDenoise)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "set_sharpen",
		Description: "Set the unsharp mask amount (0 to 3, steps of 0.1). Out-of-range values are clamped.",
	}, s.setSharpen)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "feed_status",
		Description: "Check whether the backend's live video feed is streaming.",
	}, s.feedStatus)
}

func (s *server) getConfig(ctx context.Context, req *mcp.CallToolRequest, in emptyInput) (*mcp.CallToolResult, configOutput, error) {
	return nil, configOutput{Config: s.session.Config(), Sync: s.session.Stats()}, nil
}

func (s *server) setSource(ctx context.Context, req *mcp.CallToolRequest, in setSourceInput) (*mcp.CallToolResult, configOutput, error) {
	return s.change(ctx, func() { s.session.Panel().SetSource(in.Source) })
}

func (s *server) toggleClahe(ctx context.Context, req *mcp.CallToolRequest, in emptyInput) (*mcp.CallToolResult, configOutput, error) {
	return s.change(ctx, func() { s.session.Panel().ToggleClahe() })
}

func (s *server) toggleDenoise(ctx context.Context, req *mcp.CallToolRequest, in emptyInput) (*mcp.CallToolResult, configOutput, error) {
	return s.change(ctx, func() { s.session.Panel().ToggleDenoise() })
}

func (s *server) setSharpen(ctx context.Context, req *mcp.CallToolRequest, in setSharpenInput) (*mcp.CallToolResult, configOutput, error) {
	return s.change(ctx, func() { s.session.Panel().SetSharpen(in.Amount) })
}

func (s *server) feedStatus(ctx context.Context, req *mcp.CallToolRequest, in emptyInput) (*mcp.CallToolResult, feedStatusOutput, error) {
	if s.monitor != nil {
		if st, ok := s.monitor.last(); ok {
			return nil, st, nil
		}
	}
	return nil, probeFeed(ctx, s.session.Feed()), nil
}

// change runs apply, then waits for the write-through so the caller learns
// whether the backend took it. The local value stands regardless.
func (s *server) change(ctx context.Context, apply func()) (*mcp.CallToolResult, configOutput, error) {
	failedBefore := s.session.Stats().PushesFailed
	apply()

	out := configOutput{Config: s.session.Config()}
	if err := s.session.WaitContext(ctx); err == nil {
		pushed := s.session.Stats().PushesFailed == failedBefore
		out.Pushed = &pushed
	}
	out.Sync = s.session.Stats()
	return nil, out, nil
}
