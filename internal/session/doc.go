// Package session runs one camera scanning session.
//
// A Session owns a reconcile.Reconciler for its whole lifetime, feeds it
// decode events in arrival order, hands the resulting commands to a
// Presenter, and optionally records every step to the SQLite session log.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All reconciler access happens in the goroutine that calls Run. Producers
// (the frame feed, prompt answers coming back from the UI) call Enqueue or
// Answer from any goroutine; the unbounded FIFO queue hands items to the loop
// one at a time. This keeps the reconciler lock-free and gives a
// reproducible log on replay.
//
// Processing Flow:
//  1. Item enqueued (decode event or prompt answer)
//  2. Run dequeues it and stamps it with Clock.Next()
//  3. Decode events: Reconciler.Process, log the step, apply commands in order
//  4. Answers: log the outcome; a dismissal is reported to the reconciler
//
// Logical Clock:
// Every processed item consumes one seq. Ordering never uses wall time.
//
// Errors:
// Presenter and store failures are logged and processing continues. Retrying
// a presentation command would reorder it relative to later frames. The
// failures are collected as *RuntimeError and available from Errors.
package session
