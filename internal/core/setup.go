package core

// Kind distinguishes setup flavors. Only KindReturn setups can hand out a
// nested mock, which makes them eligible for recursive verification.
type Kind int

const (
	// KindVoid is a setup for a call without a configured return value.
	KindVoid Kind = iota
	// KindReturn is a setup that produces a return value and may own a
	// nested mock.
	KindReturn
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindReturn:
		return "return"
	default:
		return "unknown"
	}
}

// Setup is a registered behavior specification for a call site. It is
// implemented by the interception layer; the engine only consumes it.
//
// Conditional setups carry an extra guard beyond their argument pattern.
// They never shadow another setup and are never shadowed themselves, so the
// registry excludes them from override detection.
type Setup interface {
	// Method returns the call-site signature the setup is attached to.
	Method() Method

	// Matches reports whether the setup's full predicate accepts the call.
	// May be arbitrarily expensive; the registry avoids calling it when a
	// cheap signature check already rules the setup out.
	Matches(call Invocation) bool

	// Conditional reports whether the setup carries an extra guard.
	Conditional() bool

	// Expectation returns the identity used for duplicate and override
	// detection: two unguarded setups with equal expectations are the same
	// specification, and the newer one wins.
	Expectation() Expectation

	// Kind returns the setup flavor.
	Kind() Kind

	// InnerMock returns the nested mock the setup materializes, if any.
	InnerMock() (any, bool)
}

// Invocation is one observed call to an intercepted call site. Created by
// the interception layer, appended to the log, and owned by the log from
// then on; the engine reads it and flips the verified marker, nothing else.
//
// Implementations must be comparable, in practice a pointer: the engine
// tracks invocations by identity, both in the matched-invocation index and
// when joining match records back to log positions at export. Every
// observed call must be a distinct instance, even for repeated calls with
// equal arguments.
type Invocation interface {
	// Method returns the call-site signature of the observed call.
	Method() Method

	// Args returns the observed arguments.
	Args() []any

	// MarkVerified flips the verified marker. Idempotent.
	MarkVerified()

	// Verified reports whether some verification pass confirmed the call
	// satisfied a setup.
	Verified() bool
}
