// Package audio turns the companion app's per-tick band-energy frames into
// visually smoothed state: asymmetric smoothing (instant attack, geometric
// decay), peak hold with timed decay, and integer beat detection over a
// short ring of mean energies.
//
// The processor is written for the scheduler's single control flow. The one
// concurrent entry point is Ingest, which may be called from a transport
// session goroutine; a busy flag makes it drop frames while a render pass
// is in flight, giving an at-most-one-frame-in-flight guarantee. Dropped
// frames are never queued or retried.
package audio
