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

package dispatch

import (
	"context"
	"time"

	"support-platform/internal/escalation"
	"support-platform/internal/evidence"
	"support-platform/internal/memory"
	"support-platform/internal/pipeline/common"
	"support-platform/pkg/log"
	"support-platform/pkg/metrics"
)

// 置信度分带话术。低带话术整句替换回答，不做自由生成
const (
	// MsgInsufficientConfidence 综合置信度低于下限带时的固定回复
	MsgInsufficientConfidence = "抱歉，当前掌握的信息不足以给出可靠的答复。需要为您转接人工客服进一步处理吗？"
	// MsgEscalationOffer 低于提供带时附加在回答后的升级提示
	MsgEscalationOffer = "如果以上回答没有解决您的问题，我可以为您转接人工客服。"
	// MsgHandover 转人工时的用户侧回复
	MsgHandover = "您的问题已转交人工客服处理，客服人员会尽快与您联系。"
)

// Result 一次运行的终端输出
type Result struct {
	RunID        string                  `json:"run_id"`
	Reply        string                  `json:"reply"`
	Decision     *common.RoutingDecision `json:"decision"`
	Escalated    bool                    `json:"escalated"`
	EscalationID string                  `json:"escalation_id,omitempty"`
	Elapsed      time.Duration           `json:"elapsed"`
}

// Bands 置信度分带阈值（来自配置，不硬编码）
type Bands struct {
	Floor float64 // 低于此值整句替换为 MsgInsufficientConfidence
	Offer float64 // 低于此值在回答后附加 MsgEscalationOffer
}

// Dispatcher 结果派发阶段：合成最终回复或构建人工交接包，
// 并触发不阻塞响应路径的记忆写入
type Dispatcher struct {
	sink   escalation.Sink
	writer *memory.Writer
	bands  Bands
	logger *log.Logger
}

// NewDispatcher 创建派发器
func NewDispatcher(sink escalation.Sink, writer *memory.Writer, bands Bands, logger *log.Logger) *Dispatcher {
	return &Dispatcher{sink: sink, writer: writer, bands: bands, logger: logger}
}

// Dispatch 执行派发。升级提交失败记录在包上，不阻断运行；
// 记忆写入 fire-and-forget
func (d *Dispatcher) Dispatch(ctx context.Context, rc *common.RunContext, decision *common.RoutingDecision) *Result {
	result := &Result{RunID: rc.RunID, Decision: decision}

	switch decision.Decision {
	case common.RouteAuto:
		result.Reply = d.autoReply(rc, decision)
	default:
		result.Reply = MsgHandover
		result.Escalated = true
		packet := d.buildPacket(rc, decision)
		id, err := d.sink.Submit(ctx, packet)
		if err != nil {
			packet.SubmitError = err.Error()
			metrics.EscalationTotal.WithLabelValues("failed").Inc()
			d.logger.Error("escalation submit failed", "run_id", rc.RunID, "error", err)
			rc.Emit("escalation_failed", "dispatch", map[string]any{"error": err.Error()})
		} else {
			packet.EscalationID = id
			result.EscalationID = id
			metrics.EscalationTotal.WithLabelValues("submitted").Inc()
			rc.Emit("escalation_submitted", "dispatch", map[string]any{"escalation_id": id})
		}
	}

	d.persistMemories(rc, decision, result)
	result.Elapsed = rc.Elapsed()
	return result
}

// autoReply 按置信度分带合成回答
func (d *Dispatcher) autoReply(rc *common.RunContext, decision *common.RoutingDecision) string {
	if decision.Confidence < d.bands.Floor {
		return MsgInsufficientConfidence
	}
	answer := synthesizeAnswer(rc.Analysis())
	if decision.Confidence < d.bands.Offer {
		return answer + "\n\n" + MsgEscalationOffer
	}
	return answer
}

// synthesizeAnswer 以首要动作的理由为回答主体，退而用首要假设
func synthesizeAnswer(a *common.Analysis) string {
	if a != nil {
		for _, act := range a.Actions {
			if act.Rationale != "" {
				return act.Rationale
			}
		}
		if top := a.TopHypothesis(); top != nil && top.Statement != "" {
			return top.Statement
		}
	}
	return MsgInsufficientConfidence
}

func (d *Dispatcher) buildPacket(rc *common.RunContext, decision *common.RoutingDecision) *escalation.Packet {
	c := rc.Case()
	ev := make(map[string][]*evidence.Envelope)
	for _, src := range rc.Evidence.Sources() {
		ev[src] = rc.Evidence.Get(src)
	}
	conversationID := ""
	if c != nil {
		conversationID = c.ConversationID
	}
	return &escalation.Packet{
		RunID:          rc.RunID,
		ConversationID: conversationID,
		CreatedAt:      time.Now(),
		Case:           c,
		Intent:         rc.Intent(),
		Plan:           rc.Plan(),
		Evidence:       ev,
		Retrieval:      rc.Retrieval(),
		Analysis:       rc.Analysis(),
		Decision:       decision,
		Events:         rc.Events(),
	}
}

// persistMemories 触发异步记忆写入：episodic 每次运行一条，
// auto 处置额外写一条 procedural 使用记录
func (d *Dispatcher) persistMemories(rc *common.RunContext, decision *common.RoutingDecision, result *Result) {
	if d.writer == nil {
		return
	}
	c := rc.Case()
	it := rc.Intent()
	if c == nil || c.CustomerID == "" {
		return
	}
	issue := ""
	if it != nil {
		issue = string(it.IssueType)
	}

	d.writer.Append(&memory.Entry{
		Kind:           memory.KindEpisodic,
		CustomerID:     c.CustomerID,
		ConversationID: c.ConversationID,
		Summary:        issue + " -> " + string(decision.Decision) + ": " + result.Reply,
		Payload: map[string]any{
			"run_id":     rc.RunID,
			"decision":   string(decision.Decision),
			"risk":       string(decision.Risk),
			"confidence": decision.Confidence,
		},
	})

	if decision.Decision == common.RouteAuto {
		action := ""
		if a := rc.Analysis(); a != nil && len(a.Actions) > 0 {
			action = a.Actions[0].Action
		}
		if action != "" {
			d.writer.Append(&memory.Entry{
				Kind:       memory.KindProcedural,
				CustomerID: c.CustomerID,
				Summary:    "resolved " + issue + " via " + action,
				Payload:    map[string]any{"issue_type": issue, "action": action},
			})
		}
	}
}
