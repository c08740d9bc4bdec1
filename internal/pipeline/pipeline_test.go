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

package pipeline

import (
	"context"
	"testing"
	"time"

	"support-platform/internal/escalation"
	"support-platform/internal/evidence"
	"support-platform/internal/model/llm"
	"support-platform/internal/pipeline/common"
	"support-platform/internal/pipeline/dispatch"
	"support-platform/internal/pipeline/intake"
	"support-platform/internal/pipeline/intent"
	"support-platform/internal/pipeline/plan"
	"support-platform/internal/pipeline/reason"
	"support-platform/internal/pipeline/retrieve"
	"support-platform/internal/pipeline/route"
	"support-platform/internal/storage/cache"
	"support-platform/pkg/log"
)

type stubClient struct {
	reply string
}

func (s *stubClient) Generate(prompt string, _ llm.GenerateOptions) (string, error) {
	return s.reply, nil
}

func (s *stubClient) GenerateWithContext(_ context.Context, prompt string, _ llm.GenerateOptions) (string, error) {
	return s.reply, nil
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

// newPipeline 按给定的意图客户端装配一条全内存管线，不注册任何证据源
func newPipeline(t *testing.T, intentClient llm.Client, sink escalation.Sink) *Pipeline {
	t.Helper()
	logger := testLogger(t)
	policy := evidence.NewPolicy(nil, 2*time.Second)
	return New(Config{
		Intake:       intake.NewStage(cache.NewMemoryStore(), logger),
		Classifier:   intent.NewClassifier(intentClient, logger),
		Planner:      plan.NewLLMPlanner(nil, logger),
		Orchestrator: retrieve.NewOrchestrator(policy, logger),
		Fuser:        reason.NewFuser(nil, nil, logger),
		Authority:    route.NewAuthority(nil, logger),
		Dispatcher: dispatch.NewDispatcher(sink, nil, dispatch.Bands{
			Floor: 0.80,
			Offer: 0.90,
		}, logger),
		Floor:         0.80,
		ContinuityTTL: "1h",
		Logger:        logger,
	})
}

// 会话类消息走快速通道，不依赖任何模型，自动作答
func TestRunConversational(t *testing.T) {
	p := newPipeline(t, nil, escalation.NewMemorySink())
	result, err := p.Run(context.Background(), &intake.Request{
		ConversationID: "c1",
		Text:           "谢谢",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Decision.Decision != common.RouteAuto {
		t.Errorf("decision = %s, want auto", result.Decision.Decision)
	}
	if result.Escalated {
		t.Error("会话类消息不应升级")
	}
	if result.Reply == "" || result.Reply == dispatch.MsgInsufficientConfidence {
		t.Errorf("reply = %q", result.Reply)
	}
	if result.RunID == "" {
		t.Error("缺少 run_id")
	}
}

// 安全标记强制人工：无论证据与置信度如何都要升级
func TestRunSafetyFlagForcesHuman(t *testing.T) {
	sink := escalation.NewMemorySink()
	classifier := &stubClient{reply: `{"issue_type":"complaint","severity":"high","sla_risk":false,"safety_flags":["food_safety"],"confidence":0.9}`}
	p := newPipeline(t, classifier, sink)

	result, err := p.Run(context.Background(), &intake.Request{
		ConversationID: "c2",
		CustomerID:     "u1",
		Text:           "吃了你们的外卖后上吐下泻",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Decision.Decision != common.RouteHuman {
		t.Errorf("decision = %s, want human", result.Decision.Decision)
	}
	if !result.Escalated {
		t.Fatal("应升级人工")
	}
	if result.Reply != dispatch.MsgHandover {
		t.Errorf("reply = %q", result.Reply)
	}

	packets := sink.Packets()
	if len(packets) != 1 {
		t.Fatalf("packets = %d", len(packets))
	}
	pk := packets[0]
	if pk.ConversationID != "c2" || pk.Intent == nil || pk.Decision == nil {
		t.Errorf("packet = %+v", pk)
	}
	if len(pk.Events) == 0 {
		t.Error("交接包应携带事件轨迹")
	}
	if result.EscalationID == "" || result.EscalationID != pk.EscalationID {
		t.Errorf("escalation id: result=%q packet=%q", result.EscalationID, pk.EscalationID)
	}
}

// 会话延续：第一轮带订单号，第二轮同会话继承
func TestRunContinuityAcrossTurns(t *testing.T) {
	p := newPipeline(t, &stubClient{reply: `{"issue_type":"unknown","severity":"low","confidence":0.5}`}, escalation.NewMemorySink())
	ctx := context.Background()

	if _, err := p.Run(ctx, &intake.Request{ConversationID: "c3", Text: "order 12345 没送到"}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := p.Run(ctx, &intake.Request{ConversationID: "c3", Text: "现在怎么样了"})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Decision == nil || second.RunID == "" {
		t.Errorf("second run result = %+v", second)
	}
}
