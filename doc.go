// Package prioexec is a multi-threaded, priority-ordered executor for
// pollable futures.
//
// Architecture overview
//
// The executor is composed of three loosely coupled layers:
//
//  1. Scheduling (sorted channel)
//     A blocking multi-producer, multi-consumer priority channel carries
//     run messages and shutdown sentinels. The next message is selected
//     by comparing live task priorities at receive time, so a priority
//     change made while a task is queued is honored without resubmission.
//
//  2. Execution (Pool / workers)
//     Each worker is a goroutine locked to its own OS thread. It receives
//     the most eligible message and polls that task's future exactly once.
//     Parallelism is achieved across workers.
//
//  3. Task lifecycle
//     A task is Idle, Active or Finished. A future that reports Pending is
//     resumed only when its waker fires: the waker re-sends a run message
//     for the task, from whatever goroutine made progress possible,
//     including from inside the poll itself.
//
// Polling protocol
//
// A Future is polled with a Context carrying a Waker. Returning Pending
// obliges the future to arrange a later Wake; returning Ready completes it.
// The TaskHandle returned by Spawn is itself a Future that resolves once
// the task is Finished, so tasks can await each other without blocking a
// worker.
//
// Shutdown
//
// Close sends one shutdown sentinel per worker slot. By default the
// sentinel outranks every run message and workers stop at their next
// receive, leaving queued tasks stalled. With ShutdownDrain the sentinel
// ranks below every run message and workers stop only once nothing
// runnable is queued.
//
// Failure and healing
//
// A panic inside a poll terminates the worker that ran it. The panic is
// recovered only to be logged and reported through Options.OnTaskPanic;
// the task is left Active and is never dispatched again. Heal restarts a
// worker whose loop has exited. Nothing heals automatically: supervising
// worker liveness is the caller's job.
//
// There is no cancellation. Dropping a TaskHandle does not stop its task.
package prioexec
