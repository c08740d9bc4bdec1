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

package intent

import (
	"context"
	"testing"

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

func TestFastMatchSkipsModel(t *testing.T) {
	client := &stubClient{reply: `{"issue_type":"complaint"}`}
	c := NewClassifier(client, testLogger(t))

	cases := []struct {
		text string
		want common.IssueType
	}{
		{"你好", common.IssueGreeting},
		{"hello!", common.IssueGreeting},
		{"谢谢", common.IssueAcknowledgment},
		{"thanks", common.IssueAcknowledgment},
		{"ok", common.IssueAcknowledgment},
	}
	for _, tc := range cases {
		it, err := c.Classify(context.Background(), &common.Case{Normalized: tc.text})
		if err != nil {
			t.Fatalf("Classify(%q): %v", tc.text, err)
		}
		if it.IssueType != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.text, it.IssueType, tc.want)
		}
		if it.Confidence < 0.9 {
			t.Errorf("快速匹配置信度应高，got %v", it.Confidence)
		}
	}
	if client.calls != 0 {
		t.Errorf("快速匹配不应调用模型，calls = %d", client.calls)
	}
}

func TestClassifyParsesModelReply(t *testing.T) {
	client := &stubClient{reply: `根据分析：{"issue_type":"delivery_delay","severity":"medium","sla_risk":true,"safety_flags":[],"confidence":0.88}`}
	c := NewClassifier(client, testLogger(t))
	it, err := c.Classify(context.Background(), &common.Case{Normalized: "我的外卖怎么还没到"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if it.IssueType != common.IssueDeliveryDelay || !it.SLARisk {
		t.Errorf("intent = %+v", it)
	}
	if it.Confidence != 0.88 {
		t.Errorf("confidence = %v", it.Confidence)
	}
}

func TestClassifySafetyFlagsForceHighSeverity(t *testing.T) {
	client := &stubClient{reply: `{"issue_type":"complaint","severity":"low","safety_flags":["food_safety"],"confidence":0.9}`}
	c := NewClassifier(client, testLogger(t))
	it, err := c.Classify(context.Background(), &common.Case{Normalized: "吃完拉肚子了"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if it.Severity != common.SeverityHigh {
		t.Errorf("安全标记在场 severity 应为 high，got %s", it.Severity)
	}
}

func TestClassifyFallbackOnGarbage(t *testing.T) {
	client := &stubClient{reply: "抱歉我无法输出 JSON"}
	c := NewClassifier(client, testLogger(t))
	it, err := c.Classify(context.Background(), &common.Case{Normalized: "订单有问题"})
	if err != nil {
		t.Fatalf("Classify 不应向上抛错: %v", err)
	}
	if it.IssueType != common.IssueUnknown || it.Severity != common.SeverityMedium {
		t.Errorf("fallback intent = %+v", it)
	}
	if it.Confidence >= 0.5 {
		t.Errorf("fallback 置信度应低，got %v", it.Confidence)
	}
}

func TestClassifyInvalidEnumSanitized(t *testing.T) {
	client := &stubClient{reply: `{"issue_type":"pizza_emergency","severity":"catastrophic","confidence":1.5}`}
	c := NewClassifier(client, testLogger(t))
	it, err := c.Classify(context.Background(), &common.Case{Normalized: "help"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if it.IssueType != common.IssueUnknown {
		t.Errorf("未知 issue_type 应归一为 unknown，got %s", it.IssueType)
	}
	if it.Severity != common.SeverityMedium {
		t.Errorf("未知 severity 应归一为 medium，got %s", it.Severity)
	}
	if it.Confidence > 1 {
		t.Errorf("confidence 应钳到 [0,1]，got %v", it.Confidence)
	}
}
