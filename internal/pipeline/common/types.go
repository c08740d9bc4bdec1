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

package common

import (
	"time"
)

// Case 单次客服请求的规范化表示；Intake 产出后在一次运行内只读
type Case struct {
	ConversationID string  `json:"conversation_id"`
	Persona        string  `json:"persona"` // customer | courier | merchant
	Channel        string  `json:"channel"` // chat | email | voice
	RawText        string  `json:"raw_text"`
	Normalized     string  `json:"normalized"`
	OrderID        string  `json:"order_id,omitempty"`
	ZoneID         string  `json:"zone_id,omitempty"`
	RestaurantID   string  `json:"restaurant_id,omitempty"`
	CustomerID     string  `json:"customer_id,omitempty"`
	Locale         string  `json:"locale,omitempty"`
	Confidence     float64 `json:"confidence"`
}

// IssueType 问题类型（封闭枚举）
type IssueType string

const (
	IssueGreeting       IssueType = "greeting"
	IssueAcknowledgment IssueType = "acknowledgment"
	IssueClarification  IssueType = "clarification"
	IssueSimpleQuestion IssueType = "simple_question"
	IssueOrderStatus    IssueType = "order_status"
	IssueDeliveryDelay  IssueType = "delivery_delay"
	IssueRefundRequest  IssueType = "refund_request"
	IssueMissingItems   IssueType = "missing_items"
	IssuePaymentIssue   IssueType = "payment_issue"
	IssueAccountIssue   IssueType = "account_issue"
	IssueComplaint      IssueType = "complaint"
	IssueUnknown        IssueType = "unknown"
)

// Conversational 判断是否会话类意图（问候/致谢/澄清/简单问题），走快速模型路径且默认跳过检索
func (t IssueType) Conversational() bool {
	switch t {
	case IssueGreeting, IssueAcknowledgment, IssueClarification, IssueSimpleQuestion:
		return true
	}
	return false
}

// Severity 严重程度
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Intent 分类结果；下游阶段的必要输入，缺失时不得执行实质逻辑
type Intent struct {
	IssueType   IssueType `json:"issue_type"`
	Severity    Severity  `json:"severity"`
	SLARisk     bool      `json:"sla_risk"`
	SafetyFlags []string  `json:"safety_flags,omitempty"`
	Confidence  float64   `json:"confidence"`
}

// Route 路由取值；Plan 的 AdvisoryRoute 仅为建议，RoutingDecision 的才有约束力
type Route string

const (
	RouteAuto  Route = "auto"
	RouteHuman Route = "human"
)

// Plan 计划阶段输出：要激活的证据源子集与建议路由；空激活集合法（如问候直接跳过检索）
type Plan struct {
	Activate      []string `json:"activate"`
	AdvisoryRoute Route    `json:"advisory_route"`
	Rationale     string   `json:"rationale,omitempty"`
}

// Activated 判断某证据源是否在激活集内
func (p *Plan) Activated(source string) bool {
	if p == nil {
		return false
	}
	for _, s := range p.Activate {
		if s == source {
			return true
		}
	}
	return false
}

// Hypothesis 单条假设：陈述、置信度与支撑证据引用
type Hypothesis struct {
	Statement   string   `json:"statement"`
	Confidence  float64  `json:"confidence"`
	EvidenceIDs []string `json:"evidence_ids,omitempty"`
}

// ActionCandidate 候选动作
type ActionCandidate struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale,omitempty"`
}

// EvidenceQuality 证据质量自评
type EvidenceQuality string

const (
	QualityHigh   EvidenceQuality = "high"
	QualityMedium EvidenceQuality = "medium"
	QualityLow    EvidenceQuality = "low"
)

// Analysis 融合推理输出；每次运行在检索全部汇合后产出一次
type Analysis struct {
	Hypotheses      []Hypothesis      `json:"hypotheses"` // 按置信度降序，1–5 条
	Actions         []ActionCandidate `json:"actions,omitempty"`
	Confidence      float64           `json:"confidence"` // 综合置信度（三段加权）
	Gaps            []string          `json:"gaps,omitempty"`
	EvidenceQuality EvidenceQuality   `json:"evidence_quality"`
	Conflicts       []string          `json:"conflicts,omitempty"`
	NeedsMoreData   bool              `json:"needs_more_data"`
}

// TopHypothesis 返回置信度最高的假设，空则返回 nil
func (a *Analysis) TopHypothesis() *Hypothesis {
	if a == nil || len(a.Hypotheses) == 0 {
		return nil
	}
	return &a.Hypotheses[0]
}

// Risk 风险评估档位
type Risk string

const (
	RiskLow      Risk = "low"
	RiskMedium   Risk = "medium"
	RiskHigh     Risk = "high"
	RiskCritical Risk = "critical"
)

// CheckResult 单项确定性检查的事实记录（检查是事实，不是决定）
type CheckResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Vacuous bool   `json:"vacuous,omitempty"` // 前置检索未尝试时空泛通过
	Detail  string `json:"detail,omitempty"`
}

// RoutingDecision 路由权威输出：全管线唯一有约束力的决定
type RoutingDecision struct {
	Decision         Route         `json:"decision"`
	Risk             Risk          `json:"risk"`
	Confidence       float64       `json:"confidence"`
	KeyFactors       []string      `json:"key_factors"` // 3–5 条
	Compliance       []CheckResult `json:"compliance"`
	Safety           CheckResult   `json:"safety"`
	CriticalFailures []string      `json:"critical_failures,omitempty"`
}

// RetrievalStatus 单证据源检索状态汇总
type RetrievalStatus struct {
	Completed  bool     `json:"completed"`
	Failed     []string `json:"failed,omitempty"`
	Succeeded  []string `json:"succeeded,omitempty"`
}

// Event 运行事件（随 Handover Packet 输出完整轨迹）
type Event struct {
	At      time.Time      `json:"at"`
	Type    string         `json:"type"`
	Stage   string         `json:"stage,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}
