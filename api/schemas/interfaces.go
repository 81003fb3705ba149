package schemas

import "context"

// -- Core Component Interfaces --
//
// These interfaces decouple the orchestrator from the concrete pipeline
// components, so each one can be swapped or mocked independently.

// Backend is a scanner engine that produces a batch of findings for one
// target, either by driving a remote scanning service or by running a bundle
// of probes directly.
//
// A Backend must tolerate its underlying engine being unreachable: on
// connection failure it returns a BackendResult tagged ProvenanceSimulated
// rather than an error. A returned error means the engine was reachable but
// the scan itself failed; callers record it and carry on with the siblings.
type Backend interface {
	Name() string
	Run(ctx context.Context, target Target) (*BackendResult, error)
}

// Summarizer is the optional text-generation collaborator used to prettify
// summaries. Its failure must never fail a pipeline stage; callers substitute
// an inline failure message instead.
type Summarizer interface {
	Summarize(ctx context.Context, findings []Finding, instructions string) (string, error)
}
