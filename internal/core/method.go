package core

import "fmt"

// Method identifies an interceptable call site: the mocked type, the method
// name, and the argument count. Methods compare with == so the registry can
// use exact-signature equality as a cheap pre-check before running a full
// match predicate.
type Method struct {
	Type  string
	Name  string
	Arity int
}

// NewMethod creates a Method signature.
func NewMethod(typeName, name string, arity int) Method {
	return Method{Type: typeName, Name: name, Arity: arity}
}

// String returns the signature in "Type.Name/Arity" form.
func (m Method) String() string {
	return fmt.Sprintf("%s.%s/%d", m.Type, m.Name, m.Arity)
}

// IsZero reports whether the method is the zero signature.
func (m Method) IsZero() bool {
	return m == Method{}
}
