// Package qdisc provides an in-memory, hierarchical workload scheduler
// modeled on Linux traffic-control queueing disciplines.
//
// # Overview
//
// qdisc organizes scheduling policy as a tree of Qdisc nodes. Classless
// qdiscs are leaves: each owns a concrete queue (FIFO, LIFO, Latest,
// WorkStealing) and holds workloads directly. Classful qdiscs are
// interior nodes: they own no queue themselves and instead classify an
// incoming workload to one of their children, recursively, until it
// reaches a leaf.
//
// A workload (package workload) is a unit of schedulable work: a
// payload closure plus a lock-free state machine tracking it through
// Created, Scheduled, Running and a terminal status.
//
// # Classification and Routing
//
// Workloads may be enqueued two ways: by classification, where each
// classful qdisc evaluates its children's predicates top-down against
// an arbitrary piece of state until one accepts the workload or the
// search space is exhausted; or by handle, where a RoutingPath
// addresses an exact leaf by walking a chain of known handles without
// consulting any predicate.
//
// # Concurrency Model
//
// FIFO is a lock-free Michael-Scott queue and Latest is an atomic
// single-slot swap. LIFO is guarded by a mutex, because its
// drop-oldest-from-bottom eviction policy has no natural lock-free
// formulation, and WorkStealing keeps one mutex-guarded local deque per
// worker with far-end stealing.
//
// The classful RoundRobin qdisc dispatches to children in rotation and
// tracks emptiness with a packed generation/count counter. Workers sleep
// on a semaphore when a dequeue finds nothing; every enqueue posts a
// wake-up to it, and pending wake-ups coalesce into one.
//
// # Submission
//
// Scheduler is the entry point: Schedule classifies and enqueues a new
// workload against caller-supplied state; ScheduleByHandle enqueues
// directly at a known leaf via a RoutingPath. Scheduler owns the root
// Qdisc, the handle registry, an AnonymousPool for fire-and-forget
// workloads, and the dispatcher's worker pool.
package qdisc
