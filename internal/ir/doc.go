// Package ir provides the data model shared by every ctmflow package.
//
// This package contains type definitions, canonical JSON and hashing only.
// All other internal packages import ir; ir imports nothing internal. This
// keeps the job/plan model as the foundational layer with no cycles.
//
// Key design constraints:
//   - Specs (WorkflowSpec, JobSpec, PhaseSpec) are immutable compiler input
//   - CompiledPlan is owned by a single compile call and never persisted as-is
//   - No float values in documents; canonical JSON rejects them
//   - All JSON tags use snake_case
package ir
