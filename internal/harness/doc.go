// Package harness provides scenario tests for compiled plans.
//
// A scenario names a workflow, the options it is compiled with and a list
// of assertions about the result: which events exist, which jobs and
// phases add or wait for them, which compile errors or warnings are
// reported and, optionally, what the deploy ledger recorded.
//
// # Scenario Format
//
//	name: barrier_fan_in
//	description: "B and C both signal the S1 barrier"
//	catalog:                       # job types added over the built-in catalog
//	  - type: Step
//	    engine_type: Job:Command
//	    defaults: { Command: "echo step" }
//	workflow:                      # or workflow_file: relative/path.hcl
//	  phases: [{ name: S1 }, { name: S2 }]
//	  jobs:
//	    - { id: A, type: Step, subfolder: S1 }
//	    - { id: B, type: Step, subfolder: S1, concurrency_group: default, dependencies: [A] }
//	options:
//	  event_prefix: ""
//	deploy:
//	  times: 2
//	assertions:
//	  - { type: event_exists, event: A-TO-B, kind: edge }
//	  - { type: job_waits, job: B, event: A-TO-B }
//	  - { type: adder_count, event: S1_default_COMPLETE, count: 2 }
//	  - { type: compile_error, code: CyclicDependency }
//	  - { type: runs, statuses: [deployed, skipped] }
//
// # Deterministic Testing
//
// Scenarios compile with the default configuration's root folder unless
// options override it, log to a discard handler and deploy through a
// recording engine into an in-memory ledger with fixed run ids. The same
// scenario always renders byte-identical documents, which RunWithGolden
// compares against testdata/golden.
package harness
