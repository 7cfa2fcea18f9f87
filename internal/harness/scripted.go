package harness

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/roach88/understudy/internal/core"
)

// ScriptedSetup is the core.Setup built from a SetupSpec: signature
// equality plus per-argument literal/wildcard pattern matching.
type ScriptedSetup struct {
	method      core.Method
	patterns    []any
	guarded     bool
	kind        core.Kind
	expectation core.Expectation
	inner       any
}

// newScriptedSetup compiles a SetupSpec into a setup. The expectation
// identity is content-addressed over the argument patterns, so two specs
// with the same method and patterns are duplicates.
func newScriptedSetup(spec SetupSpec) (*ScriptedSetup, error) {
	method, err := methodOf(spec.Method, len(spec.Args))
	if err != nil {
		return nil, err
	}

	patternValue, err := core.FromGo(spec.Args)
	if err != nil {
		return nil, fmt.Errorf("setup %s: %w", spec.Method, err)
	}
	exp, err := core.NewExpectation(method, core.Object{"args": patternValue})
	if err != nil {
		return nil, err
	}

	kind := core.KindVoid
	var inner any
	if spec.Returns {
		kind = core.KindReturn
		inner = &innerMock{owner: method}
	}

	return &ScriptedSetup{
		method:      method,
		patterns:    spec.Args,
		guarded:     spec.Guarded,
		kind:        kind,
		expectation: exp,
		inner:       inner,
	}, nil
}

// innerMock is the placeholder nested mock a return-style scripted setup
// hands out.
type innerMock struct {
	owner core.Method
}

// Method implements core.Setup.
func (s *ScriptedSetup) Method() core.Method { return s.method }

// Matches implements core.Setup.
func (s *ScriptedSetup) Matches(call core.Invocation) bool {
	if call.Method() != s.method {
		return false
	}
	args := call.Args()
	if len(args) != len(s.patterns) {
		return false
	}
	for i, p := range s.patterns {
		if p == Wildcard {
			continue
		}
		if !reflect.DeepEqual(p, args[i]) {
			return false
		}
	}
	return true
}

// Conditional implements core.Setup.
func (s *ScriptedSetup) Conditional() bool { return s.guarded }

// Expectation implements core.Setup.
func (s *ScriptedSetup) Expectation() core.Expectation { return s.expectation }

// Kind implements core.Setup.
func (s *ScriptedSetup) Kind() core.Kind { return s.kind }

// InnerMock implements core.Setup.
func (s *ScriptedSetup) InnerMock() (any, bool) {
	if s.inner == nil {
		return nil, false
	}
	return s.inner, true
}

// ScriptedInvocation is the core.Invocation built from a CallStep.
type ScriptedInvocation struct {
	method   core.Method
	args     []any
	verified atomic.Bool
}

// newScriptedInvocation builds an invocation for a call step.
func newScriptedInvocation(step CallStep) (*ScriptedInvocation, error) {
	method, err := methodOf(step.Method, len(step.Args))
	if err != nil {
		return nil, err
	}
	return &ScriptedInvocation{method: method, args: step.Args}, nil
}

// Method implements core.Invocation.
func (i *ScriptedInvocation) Method() core.Method { return i.method }

// Args implements core.Invocation.
func (i *ScriptedInvocation) Args() []any { return i.args }

// MarkVerified implements core.Invocation. Idempotent.
func (i *ScriptedInvocation) MarkVerified() { i.verified.Store(true) }

// Verified implements core.Invocation.
func (i *ScriptedInvocation) Verified() bool { return i.verified.Load() }
