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

import "testing"

func TestCriticalityOrder(t *testing.T) {
	if !(NonCritical < DecisionCritical && DecisionCritical < SafetyCritical) {
		t.Fatalf("criticality levels must form a total order: %d %d %d",
			NonCritical, DecisionCritical, SafetyCritical)
	}
}

func TestEffectiveNeverDowngrades(t *testing.T) {
	levels := []Criticality{NonCritical, DecisionCritical, SafetyCritical}
	for _, declared := range levels {
		for _, contextual := range levels {
			got := Effective(declared, contextual)
			if got < declared {
				t.Errorf("Effective(%s, %s) = %s downgrades below declared", declared, contextual, got)
			}
			if got < contextual {
				t.Errorf("Effective(%s, %s) = %s downgrades below contextual", declared, contextual, got)
			}
		}
	}
	if got := Effective(DecisionCritical, SafetyCritical); got != SafetyCritical {
		t.Errorf("Effective should escalate: got %s", got)
	}
	if got := Effective(DecisionCritical, NonCritical); got != DecisionCritical {
		t.Errorf("Effective must not downgrade: got %s", got)
	}
}

func TestParseCriticality(t *testing.T) {
	cases := []struct {
		in   string
		want Criticality
	}{
		{"non_critical", NonCritical},
		{"decision_critical", DecisionCritical},
		{"safety_critical", SafetyCritical},
		{"", DecisionCritical},
		{"bogus", DecisionCritical},
	}
	for _, c := range cases {
		if got := ParseCriticality(c.in); got != c.want {
			t.Errorf("ParseCriticality(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestCriticalityString(t *testing.T) {
	if NonCritical.String() != "non_critical" ||
		DecisionCritical.String() != "decision_critical" ||
		SafetyCritical.String() != "safety_critical" {
		t.Errorf("wire names changed: %s %s %s",
			NonCritical, DecisionCritical, SafetyCritical)
	}
}
