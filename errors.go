package qdisc

import "errors"

var (
	// ErrHandleIsDefault is returned when a producer submits, or a
	// builder registers, a qdisc using the zero/default value of
	// Handle as a live identifier.
	ErrHandleIsDefault = errors.New("qdisc: handle is default value")

	// ErrNoRouteFound is returned by handle-based submission when no
	// qdisc in the tree owns the requested handle.
	ErrNoRouteFound = errors.New("qdisc: no route found for handle")

	// ErrClassificationFailed is returned by state-driven submission
	// when no qdisc in the tree accepts the classification state.
	ErrClassificationFailed = errors.New("qdisc: classification failed")

	// ErrRoutingPathInvalid signals an internal invariant failure while
	// building or consuming a routing path: a nil leaf, or a leaf whose
	// handle does not match the requested target.
	ErrRoutingPathInvalid = errors.New("qdisc: routing path invalid")

	// ErrRoutingPathLeafAlreadyCompleted signals a programming error in
	// a custom qdisc implementation: a routing path was completed with
	// a leaf more than once.
	ErrRoutingPathLeafAlreadyCompleted = errors.New("qdisc: routing path leaf already completed")

	// ErrQdiscTreeMalformed is returned by RoundRobin.AddChild when the
	// tree is already sealed or a direct sibling already uses the child's
	// handle. Cycles and handles repeated at different levels of the tree
	// are not detected.
	ErrQdiscTreeMalformed = errors.New("qdisc: tree malformed")

	// ErrWorkloadAlreadyScheduled is returned when TryBind fails because
	// the workload is already bound, running, or terminal.
	ErrWorkloadAlreadyScheduled = errors.New("qdisc: workload already scheduled")
)

// ErrDoubleStarted is returned when Start is called on a scheduler that
// has already been started.
var ErrDoubleStarted = errors.New("qdisc: double start")

// ErrDoubleStopped is returned when Stop is called on a scheduler that is
// not currently running.
var ErrDoubleStopped = errors.New("qdisc: double stop")

// ErrStopTimeout is returned when a scheduler fails to shut down within
// the timeout passed to Stop. The scheduler may still be terminating in
// the background.
var ErrStopTimeout = errors.New("qdisc: stop timeout")
