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

package escalation

import (
	"context"
	"time"

	"support-platform/internal/evidence"
	"support-platform/internal/pipeline/common"
)

// Packet 人工交接包：人工接手所需的全部运行产物
type Packet struct {
	RunID          string                            `json:"run_id"`
	ConversationID string                            `json:"conversation_id"`
	CreatedAt      time.Time                         `json:"created_at"`
	Case           *common.Case                      `json:"case"`
	Intent         *common.Intent                    `json:"intent"`
	Plan           *common.Plan                      `json:"plan,omitempty"`
	Evidence       map[string][]*evidence.Envelope   `json:"evidence,omitempty"`
	Retrieval      map[string]common.RetrievalStatus `json:"retrieval,omitempty"`
	Analysis       *common.Analysis                  `json:"analysis,omitempty"`
	Decision       *common.RoutingDecision           `json:"decision"`
	Events         []common.Event                    `json:"events,omitempty"`

	// SubmitError 提交失败时记录在包上，不阻断运行完成
	SubmitError string `json:"submit_error,omitempty"`
	// EscalationID 接收端返回的升级标识
	EscalationID string `json:"escalation_id,omitempty"`
}

// Sink 人工升级接收端：提交交接包并返回升级标识
type Sink interface {
	Submit(ctx context.Context, p *Packet) (string, error)
}
