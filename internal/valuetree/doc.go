// Package valuetree implements the value node - the core entity of the
// presentation engine. A node wraps one runtime value descriptor, an
// optional parent for presentation inheritance, and the execution
// context of the suspension episode it belongs to.
//
// All debuggee-touching work is expressed as manager commands: the
// public entry points enqueue and return, results arrive through the ui
// sinks. Node identity is immutable after construction; only the
// presentation caches mutate, and only from within commands bound to the
// node's own context, so no cross-node locking exists.
//
// Obsolescence is re-checked immediately before every mutation of UI
// state, not just at enqueue time, to close the race where a node is
// superseded mid-computation.
package valuetree
