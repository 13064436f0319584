// Package resize detects geometry changes of a Target by polling.
//
// A Watcher samples six fields of its target on a fixed interval and fires
// a "resize" event on its emitter whenever any of them differs from the
// stored Sample. The event carries no payload: it signals that a change
// occurred, not what the change was. Listeners run asynchronously and may
// observe a Sample captured by a later tick.
package resize
