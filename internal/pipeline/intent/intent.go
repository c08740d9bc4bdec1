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
	"regexp"
	"strings"

	"support-platform/internal/model/llm"
	"support-platform/internal/pipeline/common"
	"support-platform/pkg/log"
	"support-platform/pkg/metrics"
)

var (
	greetingPattern = regexp.MustCompile(`(?i)^(hi|hello|hey|你好|您好)[!.！。\s]*$`)
	thanksPattern   = regexp.MustCompile(`(?i)^(thanks|thank you|thx|ok|okay|got it|谢谢|好的|收到)[!.！。\s]*$`)
)

// classification LLM 输出 schema
type classification struct {
	IssueType   string   `json:"issue_type"`
	Severity    string   `json:"severity"`
	SLARisk     bool     `json:"sla_risk"`
	SafetyFlags []string `json:"safety_flags"`
	Confidence  float64  `json:"confidence"`
}

// Classifier 意图分类阶段：先走确定性快速匹配，剩余交给快速模型
type Classifier struct {
	client llm.Client
	logger *log.Logger
}

// NewClassifier 创建意图分类器（client 用快速模型）
func NewClassifier(client llm.Client, logger *log.Logger) *Classifier {
	return &Classifier{client: client, logger: logger}
}

const classifyPrompt = `你是外卖平台客服意图分类器。根据用户消息输出 JSON（仅输出合法 JSON，不要其他文字）：
{"issue_type":"greeting|acknowledgment|clarification|simple_question|order_status|delivery_delay|refund_request|missing_items|payment_issue|account_issue|complaint|unknown",
 "severity":"low|medium|high",
 "sla_risk":true/false,
 "safety_flags":["food_safety"|"allergy"|"accident"|"threat", ...] 没有则为空数组,
 "confidence":0.0-1.0}
- 涉及食品安全、过敏、人身事故、威胁的必须写入 safety_flags 且 severity 为 high。
- 配送超时且用户明确赶时间时 sla_risk 为 true。`

// Classify 执行分类。结构化输出解析失败时回退保守默认值，从不向上抛出
func (c *Classifier) Classify(ctx context.Context, cs *common.Case) (*common.Intent, error) {
	if it, ok := c.fastMatch(cs.Normalized); ok {
		return it, nil
	}

	prompt := classifyPrompt + "\n\n用户消息（persona=" + cs.Persona + "）：" + cs.Normalized
	out, err := llm.GenerateObject[classification](ctx, c.client, prompt,
		llm.GenerateOptions{Temperature: 0.1, MaxTokens: 512})
	if err != nil {
		metrics.SchemaFallbackTotal.WithLabelValues("intent").Inc()
		c.logger.Warn("intent classification fallback", "error", err)
		return fallbackIntent(), nil
	}

	it := &common.Intent{
		IssueType:   common.IssueType(out.IssueType),
		Severity:    common.Severity(out.Severity),
		SLARisk:     out.SLARisk,
		SafetyFlags: out.SafetyFlags,
		Confidence:  clamp01(out.Confidence),
	}
	if !validIssueType(it.IssueType) {
		it.IssueType = common.IssueUnknown
	}
	if !validSeverity(it.Severity) {
		it.Severity = common.SeverityMedium
	}
	if len(it.SafetyFlags) > 0 {
		it.Severity = common.SeverityHigh
	}
	return it, nil
}

// fastMatch 问候/致谢类消息无需模型
func (c *Classifier) fastMatch(text string) (*common.Intent, bool) {
	t := strings.TrimSpace(text)
	switch {
	case greetingPattern.MatchString(t):
		return &common.Intent{IssueType: common.IssueGreeting, Severity: common.SeverityLow, Confidence: 0.98}, true
	case thanksPattern.MatchString(t):
		return &common.Intent{IssueType: common.IssueAcknowledgment, Severity: common.SeverityLow, Confidence: 0.98}, true
	}
	return nil, false
}

// fallbackIntent 分类失败时的保守默认：unknown + medium，低置信度
func fallbackIntent() *common.Intent {
	return &common.Intent{
		IssueType:  common.IssueUnknown,
		Severity:   common.SeverityMedium,
		Confidence: 0.3,
	}
}

func validIssueType(t common.IssueType) bool {
	switch t {
	case common.IssueGreeting, common.IssueAcknowledgment, common.IssueClarification,
		common.IssueSimpleQuestion, common.IssueOrderStatus, common.IssueDeliveryDelay,
		common.IssueRefundRequest, common.IssueMissingItems, common.IssuePaymentIssue,
		common.IssueAccountIssue, common.IssueComplaint, common.IssueUnknown:
		return true
	}
	return false
}

func validSeverity(s common.Severity) bool {
	switch s {
	case common.SeverityLow, common.SeverityMedium, common.SeverityHigh:
		return true
	}
	return false
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
