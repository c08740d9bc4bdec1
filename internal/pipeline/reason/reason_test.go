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
	"testing"

	"support-platform/internal/evidence"
	"support-platform/internal/model/llm"
	"support-platform/internal/pipeline/common"
	"support-platform/pkg/log"
)

type stubClient struct {
	reply string
	err   error
	calls int
}

func (s *stubClient) Generate(prompt string, options llm.GenerateOptions) (string, error) {
	s.calls++
	return s.reply, s.err
}
func (s *stubClient) GenerateWithContext(ctx context.Context, prompt string, options llm.GenerateOptions) (string, error) {
	s.calls++
	return s.reply, s.err
}
func (s *stubClient) Model() string    { return "stub" }
func (s *stubClient) Provider() string { return "stub" }

func testLogger(t *testing.T) *log.Logger {
	t.Helper()
	logger, err := log.NewLogger(&log.Config{Level: "error", Format: "text"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	return logger
}

func TestConversationalPathSkipsFullModel(t *testing.T) {
	full := &stubClient{reply: `{"confidence":0.1}`}
	f := NewFuser(nil, full, testLogger(t))
	a := f.Fuse(context.Background(), &common.Case{Normalized: "你好"},
		&common.Intent{IssueType: common.IssueGreeting}, evidence.NewSet())
	if full.calls != 0 {
		t.Error("会话类路径不应调用完整模型")
	}
	if len(a.Hypotheses) != 1 || a.Confidence < 0.9 {
		t.Errorf("analysis = %+v", a)
	}
	if len(a.Actions) != 1 || a.Actions[0].Action != "reply" || a.Actions[0].Rationale == "" {
		t.Errorf("会话类路径应产出 reply 动作：%+v", a.Actions)
	}
}

func TestSimpleQuestionUsesFastModel(t *testing.T) {
	fast := &stubClient{reply: "配送费按距离计算，一般 3-5 元。"}
	f := NewFuser(fast, nil, testLogger(t))
	a := f.Fuse(context.Background(), &common.Case{Normalized: "配送费怎么算"},
		&common.Intent{IssueType: common.IssueSimpleQuestion}, evidence.NewSet())
	if fast.calls != 1 {
		t.Errorf("simple_question 应走快速模型，calls = %d", fast.calls)
	}
	if a.Actions[0].Rationale != fast.reply {
		t.Errorf("rationale = %q", a.Actions[0].Rationale)
	}
}

func TestFuseParsesModelReply(t *testing.T) {
	full := &stubClient{reply: `{
		"hypotheses":[
			{"statement":"courier delayed by weather","confidence":0.6},
			{"statement":"order lost","confidence":0.8}
		],
		"actions":[{"action":"notify_customer","confidence":0.7,"rationale":"订单仍在配送中"}],
		"confidence":0.75,
		"gaps":[],
		"evidence_quality":"medium",
		"conflicts":[],
		"needs_more_data":false}`}
	f := NewFuser(nil, full, testLogger(t))
	ev := evidence.NewSet()
	ev.Append(evidence.NewEnvelope(evidence.SourceRecords))
	a := f.Fuse(context.Background(), &common.Case{Normalized: "外卖没到"},
		&common.Intent{IssueType: common.IssueDeliveryDelay}, ev)

	if len(a.Hypotheses) != 2 {
		t.Fatalf("hypotheses = %v", a.Hypotheses)
	}
	// 按置信度降序
	if a.Hypotheses[0].Confidence < a.Hypotheses[1].Confidence {
		t.Errorf("假设应按置信度降序：%v", a.Hypotheses)
	}
	if a.EvidenceQuality != common.QualityMedium || a.NeedsMoreData {
		t.Errorf("analysis = %+v", a)
	}
}

func TestFuseFallbackOnGarbage(t *testing.T) {
	full := &stubClient{reply: "no json here"}
	f := NewFuser(nil, full, testLogger(t))
	ev := evidence.NewSet()
	ev.Append(evidence.Absent(evidence.SourceRecords, "order_not_found"))
	a := f.Fuse(context.Background(), &common.Case{Normalized: "退款"},
		&common.Intent{IssueType: common.IssueRefundRequest}, ev)

	if a.Confidence >= 0.5 {
		t.Errorf("fallback 置信度应低，got %v", a.Confidence)
	}
	if !a.NeedsMoreData || a.EvidenceQuality != common.QualityLow {
		t.Errorf("fallback analysis = %+v", a)
	}
	if len(a.Gaps) != 1 || a.Gaps[0] != "order_not_found" {
		t.Errorf("fallback 应带出证据缺口：%v", a.Gaps)
	}
}

func TestToAnalysisCapsHypotheses(t *testing.T) {
	out := &analysisSchema{Confidence: 0.5, EvidenceQuality: "bogus"}
	for i := 0; i < 8; i++ {
		out.Hypotheses = append(out.Hypotheses, struct {
			Statement   string   `json:"statement"`
			Confidence  float64  `json:"confidence"`
			EvidenceIDs []string `json:"evidence_ids"`
		}{Statement: "h", Confidence: float64(i) / 10})
	}
	a := toAnalysis(out)
	if len(a.Hypotheses) != 5 {
		t.Errorf("假设应限制在 5 条，got %d", len(a.Hypotheses))
	}
	if a.EvidenceQuality != common.QualityMedium {
		t.Errorf("未知质量档位应归一为 medium，got %s", a.EvidenceQuality)
	}
}

func TestToAnalysisEnsuresHypothesis(t *testing.T) {
	a := toAnalysis(&analysisSchema{Confidence: 0.4, EvidenceQuality: "low"})
	if len(a.Hypotheses) != 1 {
		t.Errorf("空假设列表应补一条占位假设，got %v", a.Hypotheses)
	}
}
