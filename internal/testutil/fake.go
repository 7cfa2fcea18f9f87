// Package testutil provides deterministic Setup and Invocation fakes shared
// by engine tests.
package testutil

import (
	"sync/atomic"

	"github.com/roach88/understudy/internal/core"
)

// FakeSetup is a configurable core.Setup implementation.
type FakeSetup struct {
	Sig       core.Method
	MatchFunc func(call core.Invocation) bool
	Guarded   bool
	Exp       core.Expectation
	SetupKind core.Kind
	Inner     any
}

// Method implements core.Setup.
func (f *FakeSetup) Method() core.Method { return f.Sig }

// Matches implements core.Setup. A nil MatchFunc matches any call with the
// same signature.
func (f *FakeSetup) Matches(call core.Invocation) bool {
	if f.MatchFunc != nil {
		return f.MatchFunc(call)
	}
	return call.Method() == f.Sig
}

// Conditional implements core.Setup.
func (f *FakeSetup) Conditional() bool { return f.Guarded }

// Expectation implements core.Setup.
func (f *FakeSetup) Expectation() core.Expectation { return f.Exp }

// Kind implements core.Setup.
func (f *FakeSetup) Kind() core.Kind { return f.SetupKind }

// InnerMock implements core.Setup.
func (f *FakeSetup) InnerMock() (any, bool) {
	if f.Inner == nil {
		return nil, false
	}
	return f.Inner, true
}

// NewSetup creates a fake setup for a method that matches any call with the
// same signature. The expectation identity is derived from the signature
// alone, so two NewSetup calls for the same method are duplicates.
func NewSetup(typeName, name string, arity int) *FakeSetup {
	sig := core.NewMethod(typeName, name, arity)
	return &FakeSetup{
		Sig: sig,
		Exp: core.MustExpectation(sig, core.Object{"any": core.Bool(true)}),
	}
}

// FakeInvocation is a core.Invocation implementation with an atomic
// verified marker.
type FakeInvocation struct {
	Sig       core.Method
	Arguments []any
	verified  atomic.Bool
}

// NewInvocation creates a fake invocation.
func NewInvocation(typeName, name string, args ...any) *FakeInvocation {
	return &FakeInvocation{
		Sig:       core.NewMethod(typeName, name, len(args)),
		Arguments: args,
	}
}

// Method implements core.Invocation.
func (f *FakeInvocation) Method() core.Method { return f.Sig }

// Args implements core.Invocation.
func (f *FakeInvocation) Args() []any { return f.Arguments }

// MarkVerified implements core.Invocation. Idempotent.
func (f *FakeInvocation) MarkVerified() { f.verified.Store(true) }

// Verified implements core.Invocation.
func (f *FakeInvocation) Verified() bool { return f.verified.Load() }
