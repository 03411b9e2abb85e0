// Package session drives an engine through the reset / load / step state
// machine and reports every operation as a Result carrying a full snapshot
// of the machine.
//
// A Session is not safe for concurrent use.
package session

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/m64sim/engine"
	"github.com/sarchlab/m64sim/snapshot"
	"github.com/sarchlab/m64sim/timing/cache"
)

// CacheConfigurer is an engine whose cache-traffic model can be rebuilt
// with a new geometry.
type CacheConfigurer interface {
	ConfigureCache(config cache.HierarchyConfig) error
}

// Option configures a Session.
type Option func(*Session)

// WithSymbolTable sets the symbol table wiped on reset.
func WithSymbolTable(symbols engine.Resetter) Option {
	return func(s *Session) {
		s.symbols = symbols
	}
}

// WithTrafficModel sets the cache-traffic model fed by the engine.
func WithTrafficModel(traffic engine.TrafficModel) Option {
	return func(s *Session) {
		s.traffic = traffic
	}
}

// WithStdout sets the sink holding the program output.
func WithStdout(stdout engine.OutputSink) Option {
	return func(s *Session) {
		s.stdout = stdout
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithSyntaxChecker sets the factory of scratch parsers used by
// CheckSyntax.
func WithSyntaxChecker(newParser func() engine.Parser) Option {
	return func(s *Session) {
		s.newParser = newParser
	}
}

// WithCacheConfigurer sets the target of SetCacheConfig.
func WithCacheConfigurer(c CacheConfigurer) Option {
	return func(s *Session) {
		s.cacheConfigurer = c
	}
}

// Session is the controller a host talks to.
type Session struct {
	cpu    engine.Engine
	mem    engine.Memory
	parser engine.Parser

	symbols engine.Resetter
	traffic engine.TrafficModel
	stdout  engine.OutputSink

	newParser       func() engine.Parser
	cacheConfigurer CacheConfigurer

	builder *snapshot.Builder
	logger  *slog.Logger

	// pendingErrors holds the diagnostics of the last parse that reported
	// any. Only a clean parse clears it.
	pendingErrors error
}

// New creates a session over an engine, its memory and its parser.
func New(
	cpu engine.Engine,
	mem engine.Memory,
	parser engine.Parser,
	opts ...Option,
) *Session {
	s := &Session{
		cpu:    cpu,
		mem:    mem,
		parser: parser,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	builderOpts := []snapshot.Option{snapshot.WithLogger(s.logger)}
	if s.stdout != nil {
		builderOpts = append(builderOpts, snapshot.WithStdout(s.stdout))
	}
	s.builder = snapshot.NewBuilder(cpu, mem, builderOpts...)

	return s
}

// PendingErrors returns the diagnostics that are attached to every step
// and load result, or nil.
func (s *Session) PendingErrors() []ParseError {
	return ParseErrorsFrom(s.pendingErrors)
}

// Snapshot returns the current state without changing it.
func (s *Session) Snapshot() Result {
	return s.result(nil)
}

// Reset re-initializes the CPU, the cache-traffic model, the symbol table
// and the output. Pending parse errors survive a reset.
func (s *Session) Reset() Result {
	s.reset()
	s.logger.Info("session reset")

	return s.result(nil)
}

func (s *Session) reset() {
	s.cpu.Reset()
	if s.traffic != nil {
		s.traffic.Reset()
	}
	if s.symbols != nil {
		s.symbols.Reset()
	}
	if s.stdout != nil {
		s.stdout.Reset()
	}
}

// LoadProgram resets the machine and parses source into it. Fatal
// diagnostics leave the machine READY; warnings alone do not prevent the
// program from running.
func (s *Session) LoadProgram(source string) Result {
	s.reset()
	s.logger.Info("loading program", "bytes", len(source))

	if err := s.parser.Parse(source); err != nil {
		s.pendingErrors = err

		if hasFatal(ParseErrorsFrom(err)) {
			s.logger.Warn("program rejected", "error", err)
			return s.resultWithPending(ErrParsing)
		}

		s.logger.Warn("program parsed with warnings", "warnings", err)
	} else {
		s.pendingErrors = nil
	}

	if s.traffic != nil {
		s.traffic.SetDataOffset(uint64(s.mem.InstructionCount() * snapshot.InstructionWidth))
	}
	s.cpu.SetStatus(engine.StatusRunning)

	s.logger.Info("program loaded", "instructions", s.mem.InstructionCount())

	return s.resultWithPending(nil)
}

// Step advances the engine by up to n steps. A halt ends the loop
// successfully. A break ends it with EncounteredBreak set.
func (s *Session) Step(n int) Result {
	if st := s.cpu.Status(); snapshot.Classify(st) != snapshot.StatusRunning {
		return s.resultWithPending(errNotRunning(st))
	}
	if n <= 0 {
		return s.resultWithPending(ErrStepCount)
	}

	for i := 0; i < n; i++ {
		res := s.step()

		switch res.Outcome {
		case engine.OutcomeCompleted:
			continue
		case engine.OutcomeHalted:
			s.logger.Info("program halted", "steps", i+1)
			return s.resultWithPending(nil)
		case engine.OutcomeBroke:
			s.logger.Info("break encountered", "steps", i+1)
			r := s.resultWithPending(nil)
			r.EncounteredBreak = true
			return r
		default:
			err := res.Err
			if err == nil {
				err = fmt.Errorf("step failed with outcome %s", res.Outcome)
			}
			s.logger.Error("step failed", "steps", i+1, "error", err)
			return s.resultWithPending(err)
		}
	}

	return s.resultWithPending(nil)
}

// step runs one engine step, turning a panic into a failed outcome.
func (s *Session) step() (res engine.StepResult) {
	defer func() {
		if r := recover(); r != nil {
			res = engine.Failed(fmt.Errorf("engine panic: %v", r))
		}
	}()

	return s.cpu.Step()
}

func (s *Session) result(err error) Result {
	return newResult(s.builder.Build(), err)
}

func (s *Session) resultWithPending(err error) Result {
	return attachParseErrors(s.result(err), s.pendingErrors)
}
