// Package chat implements the turn-taking reply controller.
//
// For each user message the Controller records the user turn, picks a reply
// strategy from the settings (offline keyword rules when no API key is set,
// a remote completion otherwise), renders the reply through a Display and
// records exactly one assistant turn. Failures never escape: they become an
// assistant turn carrying the error text and an Outcome with Err set.
//
// The Controller runs one message to completion before returning. Streamed
// replies are consumed on the calling goroutine, one fragment at a time, and
// every fragment causes the full text so far to be re-rendered.
package chat
