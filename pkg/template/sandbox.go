package template

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/getmocknode/mocknode/pkg/vars"
)

// ErrEvalTimeout reports a script that exceeded the evaluation budget.
var ErrEvalTimeout = fmt.Errorf("script evaluation exceeded the time budget")

// programCache caches compiled programs keyed by expression text and the
// shape of the environment they were compiled against.
type programCache struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

func newProgramCache() *programCache {
	return &programCache{programs: make(map[string]*vm.Program)}
}

func (c *programCache) get(key string) (*vm.Program, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.programs[key]
	return p, ok
}

func (c *programCache) put(key string, p *vm.Program) *vm.Program {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Another goroutine may have compiled the same expression already.
	if existing, ok := c.programs[key]; ok {
		return existing
	}
	c.programs[key] = p
	return p
}

// eval compiles (or reuses) and runs an expression under the wall-clock
// budget. The evaluation runs on its own goroutine so a runaway script
// cannot stall the caller's event loop; the caller stops waiting at the
// deadline and reports ErrEvalTimeout.
func (e *Engine) eval(expression string, scope *vars.Scope) (any, error) {
	env := e.env(scope)

	program, err := e.compile(expression, env)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("script panic: %v", r)}
			}
		}()
		v, runErr := expr.Run(program, env)
		done <- outcome{value: v, err: runErr}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, fmt.Errorf("eval %q: %w", expression, out.err)
		}
		return out.value, nil
	case <-time.After(e.budget):
		return nil, ErrEvalTimeout
	}
}

func (e *Engine) compile(expression string, env map[string]any) (*vm.Program, error) {
	key := expression + "\x00" + envSignature(env)
	if program, ok := e.programs.get(key); ok {
		return program, nil
	}

	program, err := expr.Compile(expression, expr.Env(env))
	if err != nil {
		return nil, err
	}
	return e.programs.put(key, program), nil
}

// envSignature produces a stable key component from the environment's
// variable names, so programs compiled against one shape are not reused
// against another.
func envSignature(env map[string]any) string {
	if len(env) == 0 {
		return ""
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sig := ""
	for _, k := range keys {
		sig += k + ","
	}
	return sig
}
