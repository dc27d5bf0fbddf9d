// Package bridge implements the Bridge Server (spec §4.G): the type-state
// lifecycle wrapping internal/mcpserver.Handler with the process's actual
// stdin/stdout transport. Grounded directly on the teacher's
// StdioClient.readResponses / ProcessClient read loop in pkg/mcp/stdio.go
// and pkg/mcp/process.go — adapted from "client reading responses from a
// subprocess" to "server reading requests from its own stdin" — and on
// pkg/mcp/handler.go's handleMethod dispatch for the per-line JSON-RPC
// envelope handling.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/icarus-mcp/icarus-bridge/internal/bridgeerr"
	"github.com/icarus-mcp/icarus-bridge/internal/canisterclient"
	"github.com/icarus-mcp/icarus-bridge/internal/logging"
	"github.com/icarus-mcp/icarus-bridge/internal/mcpserver"
	"github.com/icarus-mcp/icarus-bridge/pkg/jsonrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the Bridge Server's span source. With no TracerProvider
// registered (internal/tracing.Setup's default), every span below is a
// zero-cost no-op.
var tracer = otel.Tracer("github.com/icarus-mcp/icarus-bridge/internal/bridge")

// lifecycle states, carried in an atomic uint32 so Connect/Serve/Shutdown
// can be called from separate goroutines without a lock around the state
// check itself.
const (
	stateUninitialized uint32 = iota
	stateConnected
	stateServing
	stateShutdown
)

func stateName(s uint32) string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateConnected:
		return "connected"
	case stateServing:
		return "serving"
	case stateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// maxRequestLine bounds a single incoming JSON-RPC line, mirroring the
// teacher's bufio.Scanner buffer enlargement in stdio.go's readResponses.
const maxRequestLine = 1024 * 1024

// Config pairs an endpoint with an identity fingerprint. Connect does not
// take it: Connect is given an already-built *canisterclient.Client.
type Config struct {
	Endpoint            string
	IdentityFingerprint string
}

// Server is the bridge's type-state lifecycle: Connect must run before
// Serve, and Shutdown is accepted once Connect has succeeded (connected or
// serving) and is terminal. Calling an operation from the wrong state
// returns bridgeerr.State, never panics.
type Server struct {
	state uint32

	mu      sync.Mutex // guards the single writer to out
	out     io.Writer
	handler *mcpserver.Handler
	logger  *slog.Logger
}

// New returns an uninitialized Server with a discard logger, mirroring
// the teacher's Gateway default (logging.NewDiscardLogger()) until
// SetLogger supplies a real one.
func New() *Server {
	return &Server{state: stateUninitialized, logger: logging.NewDiscardLogger()}
}

// SetLogger replaces the server's logger, following the teacher's
// Gateway.SetLogger convention: a nil logger is ignored rather than
// panicking or silently discarding future calls.
func (s *Server) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Connect binds the server to a canister client, transitioning
// uninitialized -> connected. Per spec §4.G the transition fetches the
// platform root key (local replicas only) and runs the first
// RefreshTools, so a canister that's unreachable is caught here instead
// of on the first tools/list request; either failure reverts the state to
// uninitialized and returns bridgeerr.ConnectionError rather than leaving
// the server half-connected.
func (s *Server) Connect(ctx context.Context, client *canisterclient.Client) error {
	ctx, span := tracer.Start(ctx, "bridge.connect")
	defer span.End()

	if !atomic.CompareAndSwapUint32(&s.state, stateUninitialized, stateConnected) {
		err := &bridgeerr.State{Want: stateName(stateUninitialized), Got: stateName(atomic.LoadUint32(&s.state))}
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if client.IsLocal() {
		if err := client.FetchRootKey(ctx); err != nil {
			atomic.StoreUint32(&s.state, stateUninitialized)
			connErr := &bridgeerr.ConnectionError{Step: "fetch_root_key", Cause: err}
			span.SetStatus(codes.Error, connErr.Error())
			return connErr
		}
	}

	if err := client.RefreshTools(ctx); err != nil {
		atomic.StoreUint32(&s.state, stateUninitialized)
		connErr := &bridgeerr.ConnectionError{Step: "refresh_tools", Cause: err}
		span.SetStatus(codes.Error, connErr.Error())
		return connErr
	}

	s.handler = mcpserver.NewHandler(client)
	span.SetAttributes(attribute.String("canister.endpoint", client.Endpoint()))
	s.logger.Info("bridge connected", "endpoint", client.Endpoint())
	return nil
}

// Serve runs the read loop: newline-delimited JSON-RPC requests read from
// in are dispatched to the handler, and responses are written to out
// through a single mutex-guarded writer (spec §5's single-writer rule).
// Serve blocks until in is exhausted, ctx is canceled, or Shutdown runs.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, span := tracer.Start(ctx, "bridge.serve")
	defer span.End()

	if !atomic.CompareAndSwapUint32(&s.state, stateConnected, stateServing) {
		err := &bridgeerr.State{Want: stateName(stateConnected), Got: stateName(atomic.LoadUint32(&s.state))}
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	s.out = out

	// scanner.Scan blocks until a line arrives; Shutdown during a blocking
	// read only takes effect once the next line is scanned (or the reader
	// closes). Same limitation as the teacher's readResponses loop.
	scanner := bufio.NewScanner(in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxRequestLine)

	for scanner.Scan() {
		if atomic.LoadUint32(&s.state) == stateShutdown {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		s.handleLine(ctx, line)
	}
	return scanner.Err()
}

// handleLine parses and dispatches one JSON-RPC request line, writing its
// response (or a parse/dispatch error response) back to out.
func (s *Server) handleLine(ctx context.Context, line []byte) {
	traceID := uuid.NewString()
	traceLogger := logging.WithTraceID(s.logger, traceID)

	var req jsonrpc.Request
	if err := json.Unmarshal(line, &req); err != nil {
		traceLogger.Warn("malformed request line", "error", err)
		s.writeResponse(jsonrpc.NewErrorResponse(nil, jsonrpc.ParseError, "invalid JSON"))
		return
	}

	ctx, span := tracer.Start(ctx, "bridge.dispatch",
		trace.WithAttributes(attribute.String("rpc.method", req.Method), attribute.String("trace_id", traceID)))
	defer span.End()

	if req.JSONRPC != "2.0" {
		traceLogger.Warn("invalid jsonrpc version", "method", req.Method)
		span.SetStatus(codes.Error, "invalid jsonrpc version")
		s.writeResponse(jsonrpc.NewErrorResponse(req.ID, jsonrpc.InvalidRequest, "invalid jsonrpc version"))
		return
	}

	if req.Method == "tools/call" {
		// req.Params carries the tool's own arguments, whose schema this
		// bridge doesn't control — a canister tool may declare a
		// "token"-or-"api_key"-named parameter, so log it through the
		// redacting path rather than verbatim.
		traceLogger.Debug("dispatching tool call", "args", logging.RedactCallArgs(req.Params))
	}

	result, err := s.handler.HandleMethod(ctx, req.Method, req.Params)
	if err != nil {
		traceLogger.Warn("method failed", "method", req.Method, "error", err)
		span.SetStatus(codes.Error, err.Error())
		s.writeResponse(jsonrpc.NewErrorResponse(req.ID, jsonrpc.InternalError, err.Error()))
		return
	}
	if req.ID == nil {
		// Notification: no response expected.
		return
	}
	traceLogger.Debug("method handled", "method", req.Method)
	s.writeResponse(jsonrpc.NewSuccessResponse(req.ID, result))
}

func (s *Server) writeResponse(resp jsonrpc.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "%s\n", data)
}

// Shutdown transitions the server to its terminal state, causing a
// running Serve loop to return on its next scanned line (or immediately,
// if Serve hasn't started reading yet). Shutdown is idempotent.
func (s *Server) Shutdown(ctx context.Context) error {
	cur := atomic.LoadUint32(&s.state)
	if cur == stateUninitialized {
		return &bridgeerr.State{Want: stateName(stateConnected) + " or " + stateName(stateServing), Got: stateName(cur)}
	}
	atomic.StoreUint32(&s.state, stateShutdown)
	s.logger.Info("bridge shutting down")
	return nil
}

// State reports the server's current lifecycle state, for tests and
// diagnostics.
func (s *Server) State() string {
	return stateName(atomic.LoadUint32(&s.state))
}
