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
	"errors"
	"sync"
	"testing"
)

func TestAbsentEnvelope(t *testing.T) {
	e := Absent(SourceRecords, "order_not_found")
	if e.Result.Status != StatusSuccess {
		t.Errorf("absence is data, not an error: status %s", e.Result.Status)
	}
	if e.Confidence != 0 {
		t.Errorf("absence envelope confidence = %v, want 0", e.Confidence)
	}
	if len(e.Gaps) != 1 || e.Gaps[0] != "order_not_found" {
		t.Errorf("gaps = %v", e.Gaps)
	}
}

func TestFailedEnvelope(t *testing.T) {
	e := Failed(SourcePolicy, errors.New("connection refused"), "policy.search_unavailable")
	if e.Result.Status != StatusFailed {
		t.Errorf("status = %s, want failed", e.Result.Status)
	}
	if e.Result.Error == "" {
		t.Error("failed envelope must carry the call error")
	}
	if len(e.Gaps) != 1 {
		t.Errorf("gaps = %v", e.Gaps)
	}
}

func TestSetAppendOrder(t *testing.T) {
	s := NewSet()
	s.Append(NewEnvelope(SourceRecords))
	s.Append(NewEnvelope(SourcePolicy))
	s.Append(NewEnvelope(SourceRecords))

	if got := len(s.Get(SourceRecords)); got != 2 {
		t.Errorf("records envelopes = %d, want 2", got)
	}
	srcs := s.Sources()
	if len(srcs) != 2 || srcs[0] != SourceRecords || srcs[1] != SourcePolicy {
		t.Errorf("sources = %v, want first-append order", srcs)
	}
	if s.Len() != 3 {
		t.Errorf("Len = %d, want 3", s.Len())
	}
	if s.Counts()[SourceRecords] != 2 {
		t.Errorf("Counts = %v", s.Counts())
	}
}

func TestSetGetReturnsCopy(t *testing.T) {
	s := NewSet()
	s.Append(NewEnvelope(SourceRecall))
	list := s.Get(SourceRecall)
	list[0] = nil
	if s.Get(SourceRecall)[0] == nil {
		t.Error("Get must return a copy of the slice")
	}
}

func TestSetGaps(t *testing.T) {
	s := NewSet()
	s.Append(Absent(SourceRecords, "order_not_found"))
	s.Append(Absent(SourceRecall, "no_history"))
	gaps := s.Gaps()
	if len(gaps) != 2 || gaps[0] != "order_not_found" || gaps[1] != "no_history" {
		t.Errorf("gaps = %v", gaps)
	}
}

func TestSetConcurrentAppend(t *testing.T) {
	s := NewSet()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Append(NewEnvelope(SourceRecords))
		}()
	}
	wg.Wait()
	if s.Len() != 50 {
		t.Errorf("Len = %d, want 50", s.Len())
	}
}
