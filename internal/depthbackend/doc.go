// Package depthbackend invokes the external depth estimation model, either
// as a local subprocess or over HTTP, and classifies its failures.
//
// The backend is an opaque collaborator: this package never inspects model
// output beyond moving the produced NPZ archive into place and pattern
// matching combined tool output for resource exhaustion. The pattern list is
// injectable so classification stays testable without spawning processes.
package depthbackend
