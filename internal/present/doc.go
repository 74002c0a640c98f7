// Package present holds the presentation side of a scanning session: the
// things that carry out the commands a reconciler emits.
//
// A terminal host has no overlay or label widget, so Writer renders each
// command as a line of text or canonical JSON. Recorder keeps commands in
// memory for tests and the scenario harness.
//
// URL prompts are handled by Prompting, a decorator around any presenter.
// It asks a Confirmer for accept/cancel off the session goroutine, hands
// accepted URLs to a Launcher, and reports every answer through a callback
// (normally session.Session.Answer). In never mode there is no Confirmer,
// so prompts stay pending and produce no answers.
package present
