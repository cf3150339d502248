// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package buffer

import (
	"github.com/sasha-s/go-deadlock"
	"github.com/yuzudb/yuzudb/common"
)

// frameHistory is a frame's access timestamps, most recent last, truncated
// to the last k entries.
type frameHistory struct {
	timestamps []int64
	evictable  bool
}

// LRUKReplacer tracks eviction eligibility and access history for the
// buffer pool's frames and picks a victim by the classical LRU-K rule: among
// evictable frames, evict the one with the largest backward k-distance
// (time since its k-th most recent access), treating frames with fewer than
// k accesses as having infinite distance and breaking ties among those by
// least-recent access.
type LRUKReplacer struct {
	mu               deadlock.Mutex
	k                int
	currentTimestamp int64
	currSize         int
	frames           map[common.FrameID]*frameHistory
}

// NewLRUKReplacer returns a replacer tracking up to numFrames frames, each
// keeping its last k access timestamps.
func NewLRUKReplacer(numFrames int, k int) *LRUKReplacer {
	return &LRUKReplacer{
		k:      k,
		frames: make(map[common.FrameID]*frameHistory, numFrames),
	}
}

// RecordAccess appends the current timestamp to frame's history, creating
// the entry on first access. New frames start non-evictable.
func (r *LRUKReplacer) RecordAccess(frame common.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.currentTimestamp++
	h, ok := r.frames[frame]
	if !ok {
		h = &frameHistory{}
		r.frames[frame] = h
	}
	h.timestamps = append(h.timestamps, r.currentTimestamp)
	if len(h.timestamps) > r.k {
		h.timestamps = h.timestamps[1:]
	}
}

// SetEvictable toggles whether frame may be chosen by Evict, maintaining
// curr_size.
func (r *LRUKReplacer) SetEvictable(frame common.FrameID, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.frames[frame]
	if !ok {
		return
	}
	if h.evictable == evictable {
		return
	}
	h.evictable = evictable
	if evictable {
		r.currSize++
	} else {
		r.currSize--
	}
}

// Remove deletes frame's access history. frame must be evictable or absent.
func (r *LRUKReplacer) Remove(frame common.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.frames[frame]
	if !ok {
		return
	}
	common.SH_Assert(h.evictable, "Remove called on a non-evictable frame")
	delete(r.frames, frame)
	r.currSize--
}

// Size returns the number of evictable frames.
func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currSize
}

// Evict picks the victim frame by the LRU-K rule, removes its history, and
// returns it. Returns false if no frame is evictable.
func (r *LRUKReplacer) Evict() (common.FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var victim common.FrameID
	found := false
	var victimInfinite bool
	var victimDistance int64
	var victimOldest int64

	for frame, h := range r.frames {
		if !h.evictable {
			continue
		}

		infinite := len(h.timestamps) < r.k
		oldest := h.timestamps[0]
		var distance int64
		if !infinite {
			kth := h.timestamps[len(h.timestamps)-r.k]
			distance = r.currentTimestamp - kth
		}

		if !found {
			victim, found, victimInfinite, victimDistance, victimOldest = frame, true, infinite, distance, oldest
			continue
		}

		switch {
		case infinite && !victimInfinite:
			// an infinite-distance frame always beats a finite one
			victim, victimInfinite, victimDistance, victimOldest = frame, true, distance, oldest
		case infinite && victimInfinite:
			if oldest < victimOldest {
				victim, victimOldest = frame, oldest
			}
		case !infinite && !victimInfinite:
			if distance > victimDistance {
				victim, victimDistance, victimOldest = frame, distance, oldest
			}
		}
		// !infinite && victimInfinite: current candidate never wins
	}

	if !found {
		return 0, false
	}

	delete(r.frames, victim)
	r.currSize--
	return victim, true
}
