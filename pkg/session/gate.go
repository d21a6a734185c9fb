package session

import "sync/atomic"

// injectionGate controls whether a queued AI response may be appended to
// the transcript. While the gate is held (session frozen/paused), queued
// responses stay queued so the human's own line is always finalized first.
type injectionGate struct {
	paused int32
}

// SetPaused sets whether the session is frozen.
func (g *injectionGate) SetPaused(paused bool) {
	var val int32
	if paused {
		val = 1
	}
	atomic.StoreInt32(&g.paused, val)
}

// Paused returns true if injection must be held back.
func (g *injectionGate) Paused() bool {
	return atomic.LoadInt32(&g.paused) == 1
}
