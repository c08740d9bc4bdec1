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

package reason

import (
	"context"
	"encoding/json"
	"sort"

	"support-platform/internal/evidence"
	"support-platform/internal/model/llm"
	"support-platform/internal/pipeline/common"
	"support-platform/pkg/log"
	"support-platform/pkg/metrics"
)

// analysisSchema LLM 输出 schema
type analysisSchema struct {
	Hypotheses []struct {
		Statement   string   `json:"statement"`
		Confidence  float64  `json:"confidence"`
		EvidenceIDs []string `json:"evidence_ids"`
	} `json:"hypotheses"`
	Actions []struct {
		Action     string  `json:"action"`
		Confidence float64 `json:"confidence"`
		Rationale  string  `json:"rationale"`
	} `json:"actions"`
	Confidence      float64  `json:"confidence"`
	Gaps            []string `json:"gaps"`
	EvidenceQuality string   `json:"evidence_quality"`
	Conflicts       []string `json:"conflicts"`
	NeedsMoreData   bool     `json:"needs_more_data"`
}

// Fuser 融合推理阶段：会话类意图走快速模型，实质问题走完整模型。
// 两条路径输出契约一致
type Fuser struct {
	fast   llm.Client
	full   llm.Client
	logger *log.Logger
}

// NewFuser 创建融合推理器
func NewFuser(fast, full llm.Client, logger *log.Logger) *Fuser {
	return &Fuser{fast: fast, full: full, logger: logger}
}

const fusePrompt = `你是外卖平台客服的证据融合分析器。根据意图与各证据源信封，输出 JSON（仅输出合法 JSON）：
{"hypotheses":[{"statement":"...","confidence":0.0-1.0,"evidence_ids":["ev-..."]}],
 "actions":[{"action":"...","confidence":0.0-1.0,"rationale":"..."}],
 "confidence":0.0-1.0,
 "gaps":["..."],
 "evidence_quality":"high|medium|low",
 "conflicts":["证据源之间的矛盾说明"],
 "needs_more_data":true/false}
- 假设 1–5 条，按置信度降序。
- 证据之间矛盾时必须写入 conflicts 并压低 confidence。
- 证据缺口（信封中的 gaps、失败信封）必须反映在 gaps 与 confidence 中。`

// Fuse 执行融合推理。解析失败回退保守 Analysis，从不向上抛错
func (f *Fuser) Fuse(ctx context.Context, c *common.Case, it *common.Intent, ev *evidence.Set) *common.Analysis {
	if it.IssueType.Conversational() {
		return f.conversational(ctx, c, it)
	}

	evJSON := marshalEvidence(ev)
	prompt := fusePrompt + "\n\n意图：" + string(it.IssueType) +
		"（severity=" + string(it.Severity) + "）\n用户消息：" + c.Normalized +
		"\n证据信封：\n" + evJSON
	out, err := llm.GenerateObject[analysisSchema](ctx, f.full, prompt,
		llm.GenerateOptions{Temperature: 0.4, MaxTokens: 2048})
	if err != nil {
		metrics.SchemaFallbackTotal.WithLabelValues("reason").Inc()
		f.logger.Warn("reasoning fallback", "error", err)
		return fallbackAnalysis(ev)
	}
	return toAnalysis(out)
}

// conversational 会话类快速路径：单假设、高置信度，不调用完整模型
func (f *Fuser) conversational(ctx context.Context, c *common.Case, it *common.Intent) *common.Analysis {
	statement := "conversational message, direct reply appropriate"
	reply := conversationalReply(it.IssueType)
	if f.fast != nil && it.IssueType == common.IssueSimpleQuestion {
		prompt := "你是外卖平台客服。用一两句话友好地回答用户：" + c.Normalized
		if r, err := f.fast.GenerateWithContext(ctx, prompt,
			llm.GenerateOptions{Temperature: 0.5, MaxTokens: 256}); err == nil && r != "" {
			reply = r
		}
	}
	return &common.Analysis{
		Hypotheses: []common.Hypothesis{{Statement: statement, Confidence: 0.95}},
		Actions: []common.ActionCandidate{{
			Action:     "reply",
			Confidence: 0.95,
			Rationale:  reply,
		}},
		Confidence:      0.95,
		EvidenceQuality: common.QualityHigh,
	}
}

func conversationalReply(t common.IssueType) string {
	switch t {
	case common.IssueGreeting:
		return "您好！我是外卖平台客服助手，请问有什么可以帮您？"
	case common.IssueAcknowledgment:
		return "不客气，祝您用餐愉快！还有其他问题随时找我。"
	case common.IssueClarification:
		return "抱歉没有说清楚，您可以告诉我具体想了解哪一单或哪方面的问题吗？"
	default:
		return "请问有什么可以帮您？"
	}
}

// fallbackAnalysis 推理失败时的保守输出：单假设、低置信度、需要更多数据
func fallbackAnalysis(ev *evidence.Set) *common.Analysis {
	return &common.Analysis{
		Hypotheses: []common.Hypothesis{{
			Statement:  "automated analysis unavailable, evidence collected but not synthesized",
			Confidence: 0.3,
		}},
		Confidence:      0.3,
		Gaps:            ev.Gaps(),
		EvidenceQuality: common.QualityLow,
		NeedsMoreData:   true,
	}
}

func toAnalysis(out *analysisSchema) *common.Analysis {
	a := &common.Analysis{
		Confidence:    clamp01(out.Confidence),
		Gaps:          out.Gaps,
		Conflicts:     out.Conflicts,
		NeedsMoreData: out.NeedsMoreData,
	}
	switch common.EvidenceQuality(out.EvidenceQuality) {
	case common.QualityHigh, common.QualityMedium, common.QualityLow:
		a.EvidenceQuality = common.EvidenceQuality(out.EvidenceQuality)
	default:
		a.EvidenceQuality = common.QualityMedium
	}
	for _, h := range out.Hypotheses {
		a.Hypotheses = append(a.Hypotheses, common.Hypothesis{
			Statement:   h.Statement,
			Confidence:  clamp01(h.Confidence),
			EvidenceIDs: h.EvidenceIDs,
		})
	}
	// 约定按置信度降序
	sort.SliceStable(a.Hypotheses, func(i, j int) bool {
		return a.Hypotheses[i].Confidence > a.Hypotheses[j].Confidence
	})
	if len(a.Hypotheses) > 5 {
		a.Hypotheses = a.Hypotheses[:5]
	}
	if len(a.Hypotheses) == 0 {
		a.Hypotheses = []common.Hypothesis{{Statement: "no hypothesis produced", Confidence: a.Confidence}}
	}
	for _, act := range out.Actions {
		a.Actions = append(a.Actions, common.ActionCandidate{
			Action:     act.Action,
			Confidence: clamp01(act.Confidence),
			Rationale:  act.Rationale,
		})
	}
	return a
}

func marshalEvidence(ev *evidence.Set) string {
	m := make(map[string][]*evidence.Envelope)
	for _, src := range ev.Sources() {
		m[src] = ev.Get(src)
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
