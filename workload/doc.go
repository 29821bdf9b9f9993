// Package workload defines the stateful unit of deferred work scheduled
// by the qdisc engine.
//
// A Workload carries a payload (a callable to invoke on a worker), a
// single-assignment back-reference to the qdisc it was bound to, an
// optional set of continuations awaiting completion, and an atomic
// status word driving its state machine.
//
// Two variants are exposed through the same base contract: Awaitable,
// which supports registering continuations and structural removal from
// its bound qdisc, and Anonymous, a fire-and-forget variant eligible for
// return to the scheduler's workload pool once terminal.
//
// Workload values are not constructed by storage or transport logic;
// they are created directly by producers (or rented from the anonymous
// pool) and passed to Scheduler.Schedule / Scheduler.ScheduleByHandle.
package workload
