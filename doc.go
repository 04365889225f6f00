// Package guardcall implements a keyed escalation scheduler: a concurrent,
// cancelable delayed-action mechanism guaranteeing at most one pending
// escalation per subject.
//
// Callers schedule an escalation action against a subject key when an alert
// is raised, and cancel it when an acknowledgment arrives. If no cancellation
// happens before the delay elapses, the action runs exactly once. Scheduling
// against a subject that already has a pending escalation supersedes the
// earlier one, so only the newest scheduled action can ever fire for that
// subject.
//
// The race between a timer elapsing and a concurrent cancellation for the
// same subject is closed with an identity check at fire time: whichever side
// removes the registry entry first determines the outcome. No interleaving
// may result in both firing and cancellation, nor in double-firing.
package guardcall
