// Package gc implements the garbage collector core of a log-structured
// flash filesystem: victim selection, per-segment reclamation state
// machines for node and data segments, the outer reclamation loop that
// interleaves reclamation with checkpointing, and the background GC
// scheduler with its adaptive sleep controller.
//
// The package owns none of the on-disk layout, the writeback pipeline,
// or the checkpoint subsystem; those are external collaborators reached
// through the interfaces in collaborators.go. A host filesystem wires a
// concrete implementation of each interface and calls
// Manager.StartGCThread to run GC in the background, or Manager.F2fsGC
// for a synchronous foreground pass.
package gc
