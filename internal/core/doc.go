// Package core defines the leaf types shared by the dispatch and
// verification engine: call-site signatures, the Setup and Invocation
// capabilities consumed from the interception layer, and content-addressed
// expectation identities built on canonical JSON.
//
// This is a leaf package with no internal dependencies, allowing it to be
// imported by any package without creating import cycles.
package core
