package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/erauner12/smartsheet-mcp/internal/mcpserver/tools"
	"github.com/erauner12/smartsheet-mcp/internal/smartsheet"
	"github.com/rs/zerolog/log"
)

// maxLineBytes bounds one newline-delimited message on stdin
const maxLineBytes = 10 << 20

// StdioUser is the subject attributed to the local stdio client
const StdioUser = "stdio"

// StdioServer speaks newline-delimited JSON-RPC over a reader/writer pair.
// The process is the session: there is no Mcp-Session-Id and no auth.
type StdioServer struct {
	rpc     *rpcHandler
	session MCPSession
	maxLine int
	mu      sync.Mutex // serializes writes
}

// NewStdioServer creates a stdio transport around a sealed tool registry
func NewStdioServer(registry *tools.Registry, api smartsheet.API, workspace *tools.Workspace) *StdioServer {
	return &StdioServer{
		rpc:     newRPCHandler(registry, api, workspace),
		session: MCPSession{ID: newID(), UserID: StdioUser},
		maxLine: maxLineBytes,
	}
}

// Serve reads requests from in until EOF or ctx is cancelled, writing one
// response line per request to out. Notifications produce no output.
func (s *StdioServer) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	logger := log.With().Str("transport", "stdio").Str("sessionId", s.session.ID).Logger()
	ctx = logger.WithContext(ctx)

	lines := make(chan stdioLine)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		reader := bufio.NewReaderSize(in, 64*1024)
		for {
			data, tooLong, err := readLine(reader, s.maxLine)
			line := stdioLine{data: bytes.TrimSpace(data), tooLong: tooLong}
			if len(line.data) > 0 || line.tooLong {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					readErr <- err
				}
				return
			}
		}
	}()

	logger.Info().Msg("Serving MCP over stdio")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					logger.Error().Err(err).Msg("stdin read failed")
					return err
				default:
					return nil
				}
			}

			var resp *JSONRPCResponse
			if line.tooLong {
				logger.Warn().Int("limit", s.maxLine).Msg("Discarded oversized stdin message")
				resp = newError(nil, InvalidRequest, fmt.Sprintf("message exceeds %d bytes", s.maxLine), nil)
			} else {
				resp = s.handleLine(ctx, line.data)
			}
			if resp != nil {
				if err := s.write(out, resp); err != nil {
					return err
				}
			}
		}
	}
}

type stdioLine struct {
	data    []byte
	tooLong bool
}

// readLine returns the next newline-terminated message. A message longer
// than limit is consumed up to its newline and reported as tooLong so the
// stream stays in sync.
func readLine(r *bufio.Reader, limit int) ([]byte, bool, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(bytes.TrimRight(chunk, "\r\n")) > limit {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return line, tooLong, err
	}
}

func (s *StdioServer) handleLine(ctx context.Context, line []byte) *JSONRPCResponse {
	var req JSONRPCRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return newError(nil, ParseError, "invalid JSON", nil)
	}
	if req.JSONRPC != "2.0" {
		if req.IsNotification() {
			return nil
		}
		return newError(req.ID, InvalidRequest, "invalid jsonrpc version", nil)
	}
	if req.Method == "" {
		return newError(req.ID, InvalidRequest, "missing method", nil)
	}
	return s.rpc.handle(ctx, &req, s.session)
}

func (s *StdioServer) write(out io.Writer, resp *JSONRPCResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = out.Write(append(data, '\n'))
	return err
}
