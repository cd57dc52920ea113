package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/MEKXH/gitmind/internal/tools"
	"github.com/MEKXH/gitmind/internal/version"
)

const (
	// ProtocolVersion is the MCP revision this server speaks.
	ProtocolVersion = "2024-11-05"
	// ServerName is reported in the initialize result.
	ServerName = "git-mind-mcp"
)

// Executor runs tool calls and describes the tools it can run.
// *tools.Registry satisfies it.
type Executor interface {
	Infos(ctx context.Context) ([]*schema.ToolInfo, error)
	Execute(ctx context.Context, name, argsJSON string) (string, error)
}

// Server answers MCP requests over a stdio stream.
type Server struct {
	registry Executor
	name     string
	version  string
}

// Options configures a Server.
type Options struct {
	Name    string
	Version string
}

func NewServer(registry Executor, opts Options) *Server {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = ServerName
	}
	ver := strings.TrimSpace(opts.Version)
	if ver == "" {
		ver = version.Version
	}
	return &Server{registry: registry, name: name, version: ver}
}

// Serve reads requests from in and writes responses to out until in is
// exhausted or ctx is cancelled. Requests are handled one at a time.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	transport := newStdioTransport(in, out)

	type readResult struct {
		msg message
		err error
	}
	incoming := make(chan readResult)
	go func() {
		defer close(incoming)
		for {
			msg, err := transport.read()
			select {
			case incoming <- readResult{msg: msg, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case next, ok := <-incoming:
			if !ok {
				return nil
			}
			if next.err != nil {
				if errors.Is(next.err, io.EOF) {
					slog.Debug("mcp input closed")
					return nil
				}
				return next.err
			}
			reply := s.handle(ctx, next.msg.payload)
			if reply == nil {
				continue
			}
			if err := transport.write(reply, next.msg.framing); err != nil {
				return err
			}
		}
	}
}

// handle processes one raw message and returns the encoded reply, or nil
// for notifications.
func (s *Server) handle(ctx context.Context, payload []byte) []byte {
	req, rpcErr := decodeRequest(payload)
	if rpcErr != nil {
		id := nullID
		if req != nil {
			if req.isNotification() {
				return nil
			}
			id = req.ID
		}
		slog.Warn("mcp request rejected", "code", rpcErr.Code, "error", rpcErr.Message)
		return s.encode(id, nil, rpcErr)
	}

	if req.isNotification() {
		s.notification(req)
		return nil
	}

	result, rpcErr := s.dispatch(ctx, req)
	return s.encode(req.ID, result, rpcErr)
}

func (s *Server) encode(id json.RawMessage, result any, rpcErr *rpcError) []byte {
	reply, err := encodeResponse(id, result, rpcErr)
	if err != nil {
		slog.Error("mcp encode response failed", "error", err)
		reply, _ = encodeResponse(id, nil, newRPCError(codeInternalError, "internal error"))
	}
	return reply
}

func (s *Server) notification(req *rpcRequest) {
	switch req.Method {
	case "notifications/initialized":
		slog.Debug("mcp client initialized")
	default:
		slog.Debug("mcp notification ignored", "method", req.Method)
	}
}

func (s *Server) dispatch(ctx context.Context, req *rpcRequest) (any, *rpcError) {
	switch req.Method {
	case "initialize":
		return s.initialize(req)
	case "ping":
		return map[string]any{}, nil
	case "tools/list":
		return s.listTools(ctx)
	case "tools/call":
		return s.callTool(ctx, req)
	default:
		return nil, newRPCError(codeMethodNotFound, "Method not found: %s", req.Method)
	}
}

type initializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
	ClientInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"clientInfo"`
}

func (s *Server) initialize(req *rpcRequest) (any, *rpcError) {
	var params initializeParams
	if rpcErr := decodeParams(req.Params, &params); rpcErr != nil {
		return nil, rpcErr
	}
	slog.Info("mcp session initialized",
		"client", params.ClientInfo.Name,
		"client_version", params.ClientInfo.Version,
		"protocol", params.ProtocolVersion,
	)
	return map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
		"serverInfo": map[string]any{
			"name":    s.name,
			"version": s.version,
		},
	}, nil
}

type toolDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

func (s *Server) listTools(ctx context.Context) (any, *rpcError) {
	infos, err := s.registry.Infos(ctx)
	if err != nil {
		return nil, newRPCError(codeInternalError, "list tools: %v", err)
	}
	list := make([]toolDescriptor, 0, len(infos))
	for _, info := range infos {
		inputSchema, err := inputSchemaOf(info)
		if err != nil {
			return nil, newRPCError(codeInternalError, "schema for %s: %v", info.Name, err)
		}
		list = append(list, toolDescriptor{
			Name:        info.Name,
			Description: info.Desc,
			InputSchema: inputSchema,
		})
	}
	return map[string]any{"tools": list}, nil
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

func (s *Server) callTool(ctx context.Context, req *rpcRequest) (any, *rpcError) {
	var params callParams
	if rpcErr := decodeParams(req.Params, &params); rpcErr != nil {
		return nil, rpcErr
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, newRPCError(codeInvalidParams, "tool name is required")
	}

	text, err := s.registry.Execute(ctx, name, compactJSONOrRaw(params.Arguments))
	if err != nil {
		var verr *tools.ValidationError
		switch {
		case errors.Is(err, tools.ErrToolNotFound):
			return nil, newRPCError(codeInvalidParams, "Unknown tool: %s", name)
		case errors.As(err, &verr):
			return nil, &rpcError{Code: codeInvalidParams, Message: verr.Error()}
		default:
			return nil, newRPCError(codeInvalidParams, "invalid arguments for %s: %v", name, err)
		}
	}
	return textResult(text), nil
}

func textResult(text string) map[string]any {
	return map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"structuredContent": map[string]any{"content": text},
	}
}

func inputSchemaOf(info *schema.ToolInfo) (any, error) {
	fallback := map[string]any{"type": "object", "properties": map[string]any{}}
	if info == nil || info.ParamsOneOf == nil {
		return fallback, nil
	}
	js, err := info.ParamsOneOf.ToJSONSchema()
	if err != nil {
		return nil, fmt.Errorf("convert params: %w", err)
	}
	if js == nil {
		return fallback, nil
	}
	return js, nil
}
