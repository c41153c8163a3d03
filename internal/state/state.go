// Package state holds everything the screens render. There is one writer per
// field group and every change is a whole-value replacement under the lock,
// so a reader never sees half of a response.
package state

import (
	"slices"
	"sync"
	"time"

	"livevision/internal/models"
)

type Snapshot struct {
	Active     bool                   `json:"active"`
	Scanning   bool                   `json:"scanning"`
	SessionID  string                 `json:"session_id,omitempty"`
	FrameCount int                    `json:"frame_count"`
	Error      string                 `json:"error,omitempty"`
	Result     models.DetectionResult `json:"result"`
	LatencyMs  int64                  `json:"latency_ms"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

type State struct {
	mu        sync.RWMutex
	snap      Snapshot
	listeners []func(Snapshot)
}

func New() *State {
	return &State{}
}

// Subscribe registers fn to be called with a fresh snapshot after every
// change. fn runs on the goroutine that made the change.
func (s *State) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

func (s *State) copyLocked() Snapshot {
	out := s.snap
	out.Result = s.snap.Result.Clone()
	return out
}

func (s *State) update(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snap)
	s.snap.UpdatedAt = time.Now()
	snap := s.copyLocked()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

// Started marks a new capture session. Earlier errors are cleared.
func (s *State) Started(sessionID string) {
	s.update(func(snap *Snapshot) {
		snap.Active = true
		snap.SessionID = sessionID
		snap.Error = ""
	})
}

// Stopped marks the session inactive. The last result stays on screen.
func (s *State) Stopped() {
	s.update(func(snap *Snapshot) {
		snap.Active = false
		snap.Scanning = false
	})
}

func (s *State) SetScanning(scanning bool) {
	s.update(func(snap *Snapshot) {
		snap.Scanning = scanning
	})
}

// ApplyResponse replaces the current result with resp and counts the frame.
func (s *State) ApplyResponse(resp *models.VisionResponse, latency time.Duration) {
	result := models.NewDetectionResult(resp)

	s.update(func(snap *Snapshot) {
		snap.Result = result
		snap.Error = ""
		snap.FrameCount++
		snap.LatencyMs = latency.Milliseconds()
	})
}

func (s *State) SetError(msg string) {
	s.update(func(snap *Snapshot) {
		snap.Error = msg
	})
}
