// Package advisor turns AI ordering and naming suggestions into ordinary
// workflow input.
//
// The suggestion service is untrusted. Its free-text reply is parsed for
// the first JSON object, a proposed order is kept only when it is a
// permutation of the requested job types, and the result is emitted as a
// plain WorkflowSpec that the compiler validates like any other input.
package advisor
