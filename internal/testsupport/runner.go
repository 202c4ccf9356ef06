package testsupport

import (
	"context"
	"strings"
	"sync"
)

// CommandRecorder is a fake command runner that records every invocation and
// delegates side effects to Handler.
type CommandRecorder struct {
	mu      sync.Mutex
	calls   [][]string
	Handler func(name string, args []string) error
}

// Run satisfies the func(ctx, name, args...) error runner signature.
func (r *CommandRecorder) Run(_ context.Context, name string, args ...string) error {
	r.mu.Lock()
	call := append([]string{name}, args...)
	r.calls = append(r.calls, call)
	handler := r.Handler
	r.mu.Unlock()
	if handler == nil {
		return nil
	}
	return handler(name, args)
}

// Calls returns a copy of every recorded invocation.
func (r *CommandRecorder) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// Count returns how many times name was invoked.
func (r *CommandRecorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, call := range r.calls {
		if call[0] == name {
			n++
		}
	}
	return n
}

// ArgAfter returns the argument following flag in args, or "".
func ArgAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

// HasArg reports whether args contains value.
func HasArg(args []string, value string) bool {
	for _, arg := range args {
		if arg == value || strings.HasPrefix(arg, value+"=") {
			return true
		}
	}
	return false
}
