// Package event implements a named-event emitter with synchronous and
// queued asynchronous dispatch.
//
// Asynchronous listeners run on the emitter's Scheduler, after the trigger
// call has returned. A listener must not assume the state of the host still
// matches the moment the event was triggered.
package event
