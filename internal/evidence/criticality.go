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

import "fmt"

// Criticality is the declared severity class governing how a tool's
// failure is handled. The three levels form a total order:
// NonCritical < DecisionCritical < SafetyCritical.
type Criticality int

const (
	// NonCritical failures are recorded and have no effect on routing.
	NonCritical Criticality = iota

	// DecisionCritical failures are recorded and surfaced to the routing
	// authority via the critical-failures list.
	DecisionCritical

	// SafetyCritical failures block any auto decision for the run.
	// No evidence envelope is recorded for a safety-critical failure.
	SafetyCritical
)

const (
	nameNonCritical      = "non_critical"
	nameDecisionCritical = "decision_critical"
	nameSafetyCritical   = "safety_critical"
)

// String returns the wire name of the criticality level.
func (c Criticality) String() string {
	switch c {
	case NonCritical:
		return nameNonCritical
	case DecisionCritical:
		return nameDecisionCritical
	case SafetyCritical:
		return nameSafetyCritical
	default:
		return fmt.Sprintf("criticality(%d)", int(c))
	}
}

// ParseCriticality parses a wire name. Unknown names default to
// DecisionCritical: an unconfigured tool is treated as mattering for the
// decision rather than silently ignorable.
func ParseCriticality(s string) Criticality {
	switch s {
	case nameNonCritical:
		return NonCritical
	case nameSafetyCritical:
		return SafetyCritical
	default:
		return DecisionCritical
	}
}

// Effective combines the declared minimum with a call-time contextual
// override. Criticality may be escalated but never downgraded below the
// declared minimum; Effective is the only combinator, so no code path can
// lower a level by direct assignment.
func Effective(declared, contextual Criticality) Criticality {
	if contextual > declared {
		return contextual
	}
	return declared
}
