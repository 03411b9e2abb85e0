// Package worker serves a session over a line-oriented JSON transport. Each
// input line is one request, e.g. {"method":"step","steps":10}, and each
// request is answered by one Result on its own output line.
package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/sarchlab/m64sim/session"
	"github.com/sarchlab/m64sim/timing/cache"
)

// Methods understood by the worker.
const (
	MethodReset       = "reset"
	MethodStep        = "step"
	MethodLoad        = "load"
	MethodCheckSyntax = "checksyntax"
	MethodCacheConfig = "setCacheConfig"
)

// maxLine bounds the size of one request line, which carries a whole
// program for load and checksyntax.
const maxLine = 4 << 20

// Request is one message from the host.
type Request struct {
	Method string                 `json:"method"`
	Steps  int                    `json:"steps,omitempty"`
	Code   string                 `json:"code,omitempty"`
	Config *cache.HierarchyConfig `json:"config,omitempty"`
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// Worker dispatches requests to a session, one at a time.
type Worker struct {
	session *session.Session
	logger  *slog.Logger
}

// New creates a worker over a session.
func New(s *session.Session, opts ...Option) *Worker {
	w := &Worker{
		session: s,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Handle runs one request against the session.
func (w *Worker) Handle(req Request) session.Result {
	w.logger.Debug("request", "method", req.Method)

	switch req.Method {
	case MethodReset:
		return w.session.Reset()
	case MethodStep:
		return w.session.Step(req.Steps)
	case MethodLoad:
		return w.session.LoadProgram(req.Code)
	case MethodCheckSyntax:
		return w.session.CheckSyntax(req.Code)
	case MethodCacheConfig:
		if req.Config == nil {
			return w.failure(ErrMissingConfig)
		}
		return w.session.SetCacheConfig(*req.Config)
	default:
		return w.failure(fmt.Errorf("%w: %q", ErrUnknownMethod, req.Method))
	}
}

func (w *Worker) failure(err error) session.Result {
	r := w.session.Snapshot()
	r.Success = false
	r.ErrorMessage = err.Error()
	return r
}

// Serve reads requests from in until it is exhausted or ctx is done, and
// writes one result line per request to out. Blank lines are skipped.
func (w *Worker) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var result session.Result
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			w.logger.Warn("malformed request", "error", err)
			result = w.failure(fmt.Errorf("%w: %v", ErrMalformed, err))
		} else {
			result = w.Handle(req)
		}

		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("writing result: %w", err)
		}
	}

	return scanner.Err()
}
