// Package engine talks to the orchestration engine.
//
// The compiler never talks to the engine; it hands a rendered plan
// document to an Engine, which builds (validates) and then deploys it.
// CTM is the production Engine and shells out to the ctm command line
// client. Engine failures are surfaced verbatim as *Error values; there
// is no retry and no rollback.
//
// Deployer wraps an Engine with the run ledger: every attempt is
// recorded with its plan hash, and a plan hash that was already
// deployed to the same folder is skipped unless forced.
package engine
