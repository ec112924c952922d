package command

import (
	"fmt"
	"strings"

	"mec/internal/result"
	"mec/internal/tobject"
	"mec/pkg/logging"
)

// Log prints its parameters, joined by spaces, as one line to the run
// output.
type Log struct {
	Base
}

// NewLog creates a log command.
func NewLog(message ...string) *Log {
	l := &Log{}
	l.initCommand(l, "log", TypeLog, message)
	return l
}

func (l *Log) Process(ctx *tobject.RunContext) result.Result {
	params, ok := l.Params(ctx)
	if !ok {
		return result.Fatal()
	}
	msg := strings.Join(params, " ")
	logging.Debug("Command", "log: %s", msg)
	if _, err := fmt.Fprintln(ctx.Writer(), msg); err != nil {
		logging.Error("Command", err, "Failed to write log output")
		return result.False
	}
	return result.True
}

// Status ends with a fixed outcome: "pass" succeeds and "fail" fails. Both
// print their parameters when given.
type Status struct {
	Base
	pass bool
}

// NewPass creates a command that always succeeds.
func NewPass(message ...string) *Status {
	s := &Status{pass: true}
	s.initCommand(s, "pass", TypeStatus, message)
	return s
}

// NewFail creates a command that always fails.
func NewFail(message ...string) *Status {
	s := &Status{}
	s.initCommand(s, "fail", TypeStatus, message)
	return s
}

func (s *Status) Process(ctx *tobject.RunContext) result.Result {
	if len(s.params) > 0 {
		if params, ok := s.Params(ctx); ok {
			if _, err := fmt.Fprintln(ctx.Writer(), strings.Join(params, " ")); err != nil {
				logging.Error("Command", err, "Failed to write %s output", s.Name())
			}
		}
	}
	return result.Bool(s.pass)
}

// SetEnv sets an environment value for the rest of the run:
// setenv <key> <value...>.
type SetEnv struct {
	Base
}

// NewSetEnv creates a setenv command.
func NewSetEnv(key string, value ...string) *SetEnv {
	s := &SetEnv{}
	s.initCommand(s, "setenv", TypeSetEnv, append([]string{key}, value...))
	return s
}

func (s *SetEnv) Process(ctx *tobject.RunContext) result.Result {
	params, ok := s.Params(ctx)
	if !ok || len(params) == 0 || params[0] == "" || ctx == nil {
		return result.Fatal()
	}
	ctx.SetEnv(params[0], strings.Join(params[1:], " "))
	return result.True
}
