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

import "time"

// ToolSpec is the static declaration of one evidence tool.
type ToolSpec struct {
	Name           string        `json:"name"`
	MinCriticality Criticality   `json:"min_criticality"`
	Timeout        time.Duration `json:"timeout"`
}

// Policy is the decision table mapping a tool to its declared minimum
// criticality. It is constructed once from configuration and read-only
// afterwards; the orchestrator, not the adapters, enforces it.
type Policy struct {
	specs          map[string]ToolSpec
	defaultTimeout time.Duration
}

// NewPolicy builds a policy from tool specs. defaultTimeout applies to
// specs without their own timeout.
func NewPolicy(specs []ToolSpec, defaultTimeout time.Duration) *Policy {
	if defaultTimeout <= 0 {
		defaultTimeout = 8 * time.Second
	}
	m := make(map[string]ToolSpec, len(specs))
	for _, s := range specs {
		if s.Timeout <= 0 {
			s.Timeout = defaultTimeout
		}
		m[s.Name] = s
	}
	return &Policy{specs: m, defaultTimeout: defaultTimeout}
}

// Declared returns the declared minimum criticality for a tool. Unknown
// tools default to DecisionCritical.
func (p *Policy) Declared(tool string) Criticality {
	if s, ok := p.specs[tool]; ok {
		return s.MinCriticality
	}
	return DecisionCritical
}

// Timeout returns the per-call timeout for a tool.
func (p *Policy) Timeout(tool string) time.Duration {
	if s, ok := p.specs[tool]; ok && s.Timeout > 0 {
		return s.Timeout
	}
	return p.defaultTimeout
}

// FailureEffect describes how the orchestrator must handle one failed call.
type FailureEffect struct {
	// RecordEnvelope is false only for safety-critical failures: no
	// evidence envelope is recorded for those at all.
	RecordEnvelope bool

	// MarkCritical adds the tool to the critical-failures list consumed
	// by the routing authority.
	MarkCritical bool

	// BlockAuto forbids an auto decision for the whole run.
	BlockAuto bool
}

// OnFailure returns the handling effect for a failure at the given
// effective criticality. The caller computes the effective level via
// Effective(p.Declared(tool), contextual).
func (p *Policy) OnFailure(effective Criticality) FailureEffect {
	switch effective {
	case SafetyCritical:
		return FailureEffect{RecordEnvelope: false, MarkCritical: true, BlockAuto: true}
	case DecisionCritical:
		return FailureEffect{RecordEnvelope: true, MarkCritical: true}
	default:
		return FailureEffect{RecordEnvelope: true}
	}
}
