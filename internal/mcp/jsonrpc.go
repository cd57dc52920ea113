package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const jsonRPCVersion = "2.0"

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

var nullID = json.RawMessage("null")

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// isNotification reports whether the message carries no id and so must
// not be answered.
func (r *rpcRequest) isNotification() bool {
	return len(r.ID) == 0
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

func newRPCError(code int, format string, args ...any) *rpcError {
	return &rpcError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func decodeRequest(payload []byte) (*rpcRequest, *rpcError) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, newRPCError(codeInvalidRequest, "request must be a JSON object")
	}
	var req rpcRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, newRPCError(codeParseError, "parse error: %v", err)
	}
	if req.JSONRPC != jsonRPCVersion || strings.TrimSpace(req.Method) == "" {
		return &req, newRPCError(codeInvalidRequest, "invalid json-rpc 2.0 request")
	}
	return &req, nil
}

func encodeResponse(id json.RawMessage, result any, rpcErr *rpcError) ([]byte, error) {
	if len(id) == 0 {
		id = nullID
	}
	resp := rpcResponse{JSONRPC: jsonRPCVersion, ID: id}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		if result == nil {
			result = map[string]any{}
		}
		resp.Result = result
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode json-rpc response: %w", err)
	}
	return payload, nil
}

// decodeParams unmarshals params into v. Absent params leave v untouched.
func decodeParams(raw json.RawMessage, v any) *rpcError {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, nullID) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return newRPCError(codeInvalidParams, "invalid params: %v", err)
	}
	return nil
}

// compactJSONOrRaw normalizes tool arguments before dispatch; empty
// arguments become an empty object.
func compactJSONOrRaw(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, nullID) {
		return "{}"
	}
	var out bytes.Buffer
	if err := json.Compact(&out, trimmed); err != nil {
		return string(trimmed)
	}
	return out.String()
}
