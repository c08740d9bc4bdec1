// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package evidence

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome class of one adapter call.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// ToolResult carries the raw call outcome inside an envelope.
type ToolResult struct {
	Status Status         `json:"status"`
	Error  string         `json:"error,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// Provenance records how the evidence was obtained.
type Provenance struct {
	Query   map[string]any `json:"query,omitempty"`
	Latency time.Duration  `json:"latency"`
}

// Envelope is the uniform wrapper every evidence source call returns.
// Envelopes are immutable once produced; accumulation is append-only.
type Envelope struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	EntityIDs  []string   `json:"entity_ids,omitempty"`
	FreshAt    time.Time  `json:"fresh_at"`
	Confidence float64    `json:"confidence"`
	Payload    any        `json:"payload,omitempty"`
	Gaps       []string   `json:"gaps,omitempty"`
	Provenance Provenance `json:"provenance"`
	Result     ToolResult `json:"result"`
}

// NewEnvelope creates an envelope for source with a fresh id and timestamp.
func NewEnvelope(source string) *Envelope {
	return &Envelope{
		ID:      "ev-" + uuid.New().String(),
		Source:  source,
		FreshAt: time.Now(),
		Result:  ToolResult{Status: StatusSuccess},
	}
}

// Absent builds the data-absence envelope: zero confidence, a named gap,
// success status. A lookup that finds nothing is data, not an error.
func Absent(source, gap string) *Envelope {
	e := NewEnvelope(source)
	e.Confidence = 0
	e.Gaps = []string{gap}
	return e
}

// Failed builds the failed envelope for a tool error or timeout.
func Failed(source string, callErr error, gap string) *Envelope {
	e := NewEnvelope(source)
	e.Confidence = 0
	if gap != "" {
		e.Gaps = []string{gap}
	}
	e.Result = ToolResult{Status: StatusFailed, Error: callErr.Error()}
	return e
}

// Set accumulates envelopes per source. Appends preserve call order within
// a source; prior envelopes are never mutated or removed. Concurrent
// appends to distinct sources need no coordination beyond the internal map
// lock; ordering across sources is not defined.
type Set struct {
	mu      sync.Mutex
	bySrc   map[string][]*Envelope
	ordered []string
}

// NewSet creates an empty evidence set.
func NewSet() *Set {
	return &Set{bySrc: make(map[string][]*Envelope)}
}

// Append adds an envelope to its source's list.
func (s *Set) Append(e *Envelope) {
	if e == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bySrc[e.Source]; !ok {
		s.ordered = append(s.ordered, e.Source)
	}
	s.bySrc[e.Source] = append(s.bySrc[e.Source], e)
}

// Get returns the ordered envelope list for one source.
func (s *Set) Get(source string) []*Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.bySrc[source]
	out := make([]*Envelope, len(list))
	copy(out, list)
	return out
}

// Sources returns source names in first-append order.
func (s *Set) Sources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Len returns the total number of envelopes across sources.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, list := range s.bySrc {
		n += len(list)
	}
	return n
}

// Counts returns per-source envelope counts (for handover packets).
func (s *Set) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.bySrc))
	for src, list := range s.bySrc {
		out[src] = len(list)
	}
	return out
}

// Gaps collects named gaps across all envelopes, in source append order.
func (s *Set) Gaps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, src := range s.ordered {
		for _, e := range s.bySrc[src] {
			out = append(out, e.Gaps...)
		}
	}
	return out
}
