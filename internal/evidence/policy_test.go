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
	"testing"
	"time"
)

func testPolicy() *Policy {
	return NewPolicy([]ToolSpec{
		{Name: SourceRecords, MinCriticality: DecisionCritical, Timeout: 5 * time.Second},
		{Name: SourcePolicy, MinCriticality: DecisionCritical},
		{Name: SourceRecall, MinCriticality: NonCritical, Timeout: 3 * time.Second},
	}, 8*time.Second)
}

func TestPolicyDeclared(t *testing.T) {
	p := testPolicy()
	if got := p.Declared(SourceRecall); got != NonCritical {
		t.Errorf("Declared(recall) = %s", got)
	}
	if got := p.Declared("unknown.tool"); got != DecisionCritical {
		t.Errorf("unknown tool must default to decision_critical, got %s", got)
	}
}

func TestPolicyTimeout(t *testing.T) {
	p := testPolicy()
	if got := p.Timeout(SourceRecords); got != 5*time.Second {
		t.Errorf("Timeout(records) = %v", got)
	}
	if got := p.Timeout(SourcePolicy); got != 8*time.Second {
		t.Errorf("spec without timeout must use default, got %v", got)
	}
	if got := p.Timeout("unknown.tool"); got != 8*time.Second {
		t.Errorf("Timeout(unknown) = %v", got)
	}
}

func TestOnFailureTable(t *testing.T) {
	p := testPolicy()
	cases := []struct {
		level Criticality
		want  FailureEffect
	}{
		{NonCritical, FailureEffect{RecordEnvelope: true}},
		{DecisionCritical, FailureEffect{RecordEnvelope: true, MarkCritical: true}},
		{SafetyCritical, FailureEffect{RecordEnvelope: false, MarkCritical: true, BlockAuto: true}},
	}
	for _, c := range cases {
		if got := p.OnFailure(c.level); got != c.want {
			t.Errorf("OnFailure(%s) = %+v, want %+v", c.level, got, c.want)
		}
	}
}

func TestKnownSources(t *testing.T) {
	known := KnownSources()
	want := map[string]bool{SourceRecords: true, SourcePolicy: true, SourceRecall: true}
	if len(known) != len(want) {
		t.Fatalf("KnownSources = %v", known)
	}
	for _, s := range known {
		if !want[s] {
			t.Errorf("unexpected source %q", s)
		}
	}
}
