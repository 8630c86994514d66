package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"

	"funccensus/internal/census"
	"funccensus/internal/report"
)

const (
	protocolVersion = "2024-11-05"
	toolName        = "count_functions"

	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse always carries an id; it is null when the request's id
// could not be read.
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Server answers census requests over newline-delimited JSON-RPC. Outcomes
// are cached across calls so repeated scans only parse changed files.
type Server struct {
	root    string
	version string
	opts    census.Options
	cache   *census.Cache

	mu     sync.Mutex
	writer *bufio.Writer
}

// NewServer creates a server that scans root unless a call names another
// path. opts supplies the default filter and pool settings.
func NewServer(root, version string, opts census.Options) *Server {
	cache := opts.Cache
	if cache == nil {
		cache = census.NewCache()
	}
	opts.Cache = cache
	return &Server{
		root:    root,
		version: version,
		opts:    opts,
		cache:   cache,
	}
}

// Run serves requests from in until EOF or ctx is done.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	s.writer = bufio.NewWriter(out)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			s.handleLine(ctx, line)
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func (s *Server) handleLine(ctx context.Context, line []byte) {
	var req JSONRPCRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.writeError(nil, codeParseError, "Parse error")
		return
	}
	s.handleRequest(ctx, &req)
}

func (s *Server) handleRequest(ctx context.Context, req *JSONRPCRequest) {
	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "ping":
		s.writeResponse(req.ID, map[string]interface{}{})
	case "tools/list":
		s.handleToolsList(req)
	case "tools/call":
		s.handleToolsCall(ctx, req)
	default:
		// Notifications carry no id and get no reply.
		if req.ID == nil {
			return
		}
		s.writeError(req.ID, codeMethodNotFound, "Method not found")
	}
}

func (s *Server) handleInitialize(req *JSONRPCRequest) {
	result := map[string]interface{}{
		"protocolVersion": protocolVersion,
		"serverInfo": map[string]string{
			"name":    "funccensus",
			"version": s.version,
		},
		"capabilities": map[string]interface{}{
			"tools": map[string]bool{},
		},
	}
	s.writeResponse(req.ID, result)
}

func (s *Server) handleToolsList(req *JSONRPCRequest) {
	stringArray := map[string]interface{}{
		"type":  "array",
		"items": map[string]string{"type": "string"},
	}
	tools := []map[string]interface{}{
		{
			"name":        toolName,
			"description": "Count top-level function definitions per source file under a directory",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":       map[string]string{"type": "string"},
					"extensions": stringArray,
					"exclude":    stringArray,
					"format": map[string]interface{}{
						"type": "string",
						"enum": []string{"json", "yaml", "tree"},
					},
				},
			},
		},
	}
	s.writeResponse(req.ID, map[string]interface{}{"tools": tools})
}

func (s *Server) handleToolsCall(ctx context.Context, req *JSONRPCRequest) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}

	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(req.ID, codeInvalidParams, "Invalid params")
		return
	}

	if params.Name != toolName {
		s.writeError(req.ID, codeInvalidParams, "Unknown tool")
		return
	}

	text, err := s.handleCountFunctions(ctx, params.Arguments)
	if err != nil {
		s.writeError(req.ID, codeInternalError, err.Error())
		return
	}

	s.writeResponse(req.ID, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": text,
			},
		},
	})
}

type countArgs struct {
	Path       string   `json:"path"`
	Extensions []string `json:"extensions"`
	Exclude    []string `json:"exclude"`
	Format     string   `json:"format"`
}

func (s *Server) handleCountFunctions(ctx context.Context, raw json.RawMessage) (string, error) {
	var input countArgs
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &input); err != nil {
			return "", err
		}
	}

	root := strings.TrimSpace(input.Path)
	if root == "" {
		root = s.root
	}
	if root == "" {
		return "", errors.New("path is required")
	}

	opts := s.opts
	if len(input.Extensions) > 0 {
		opts.Filter = nil
		opts.Extensions = input.Extensions
	}
	if len(input.Exclude) > 0 {
		opts.Exclude = append(append([]string{}, opts.Exclude...), input.Exclude...)
	}
	opts.OnResult = nil

	result, err := census.New(opts).Analyze(ctx, root)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	format := input.Format
	if format == "" || format == "json" {
		data, err := json.Marshal(result)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	if err := report.Write(&buf, format, result); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Server) writeResponse(id interface{}, result interface{}) {
	s.write(JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func (s *Server) writeError(id interface{}, code int, message string) {
	s.write(JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &RPCError{
			Code:    code,
			Message: message,
		},
	})
}

func (s *Server) write(resp JSONRPCResponse) {
	data, _ := json.Marshal(resp)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer.Write(data)
	s.writer.WriteByte('\n')
	s.writer.Flush()
}

// CacheStats reports how many outcomes the server has reused.
func (s *Server) CacheStats() census.CacheStats {
	return s.cache.Stats()
}
