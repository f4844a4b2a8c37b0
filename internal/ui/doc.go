// Package ui defines the contract between the value-presentation engine
// and the tree widget that consumes it.
//
// The engine emits a small closed set of result variants - presentation
// ready, children batch, too-many-children, message row, error - and the
// UI collaborator is their sole consumer. The engine never dispatches
// into UI internals; sinks here are the whole surface.
//
// Sink implementations are expected to marshal onto whatever thread owns
// the real tree. The recording sinks in this package are the reference
// consumers used by tests and the CLI.
package ui
