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

// Package route 路由权威：全管线唯一有权产出约束性 auto/human 决定的阶段。
// 确定性检查先于一切运行；safety_critical 失败或检查失败后不允许
// 模型把决定改回 auto。
package route

import (
	"context"
	"fmt"
	"strings"

	"support-platform/internal/evidence"
	"support-platform/internal/model/llm"
	"support-platform/internal/pipeline/common"
	"support-platform/internal/pipeline/retrieve"
	"support-platform/internal/storage/records"
	"support-platform/pkg/log"
	"support-platform/pkg/metrics"
)

// 检查名
const (
	CheckRefundDelivery = "refund_delivery_state"
	CheckPolicyGrounded = "policy_grounded"
	CheckSafety         = "safety_flags"
)

// judgment LLM 输出 schema
type judgment struct {
	Decision   string   `json:"decision"`
	Risk       string   `json:"risk"`
	KeyFactors []string `json:"key_factors"`
}

// Authority 路由权威
type Authority struct {
	client llm.Client
	logger *log.Logger
}

// NewAuthority 创建路由权威（client 用完整模型）
func NewAuthority(client llm.Client, logger *log.Logger) *Authority {
	return &Authority{client: client, logger: logger}
}

// Input 决定所需的全部事实
type Input struct {
	Case       *common.Case
	Intent     *common.Intent
	Plan       *common.Plan
	Evidence   *evidence.Set
	Retrieval  *retrieve.Outcome
	Analysis   *common.Analysis
	Confidence float64 // 三段加权综合置信度
	Floor      float64 // 置信度下限带
}

// Decide 产出约束性路由决定。检查结果是事实；决定由事实折叠而来
func (a *Authority) Decide(ctx context.Context, in *Input) *common.RoutingDecision {
	compliance := a.complianceChecks(in)
	safety := safetyCheck(in.Intent)

	d := &common.RoutingDecision{
		Confidence:       in.Confidence,
		Compliance:       compliance,
		Safety:           safety,
		CriticalFailures: in.Retrieval.CriticalFailures,
	}

	// 硬性门：safety_critical 失败、安全标记、非空泛的合规失败，
	// 任一在场即 human，模型无权推翻
	if forced, factors, risk := hardGate(in, compliance, safety); forced {
		d.Decision = common.RouteHuman
		d.Risk = risk
		d.KeyFactors = factors
		return d
	}

	decision, risk, factors := a.judge(ctx, in)
	d.Decision = decision
	d.Risk = risk
	d.KeyFactors = factors

	// decision_critical 失败在场仍选 auto 时，理由必须点名失败工具
	if d.Decision == common.RouteAuto && len(in.Retrieval.CriticalFailures) > 0 {
		named := false
		for _, f := range d.KeyFactors {
			for _, cf := range in.Retrieval.CriticalFailures {
				if strings.Contains(f, cf) {
					named = true
				}
			}
		}
		if !named {
			d.KeyFactors = append(d.KeyFactors,
				"proceeding despite failed tools: "+strings.Join(in.Retrieval.CriticalFailures, ", "))
		}
	}
	return d
}

// hardGate 返回是否强制 human 及其事实理由
func hardGate(in *Input, compliance []common.CheckResult, safety common.CheckResult) (bool, []string, common.Risk) {
	var factors []string
	risk := common.RiskHigh
	if in.Retrieval.BlockAuto {
		factors = append(factors, "safety-critical tool failure blocks auto handling")
		risk = common.RiskCritical
	}
	if !safety.Passed {
		factors = append(factors, "safety flags present: "+safety.Detail)
		risk = common.RiskCritical
	}
	for _, c := range compliance {
		if !c.Passed {
			factors = append(factors, "compliance check failed: "+c.Name)
		}
	}
	if len(factors) == 0 {
		return false, nil, ""
	}
	factors = append(factors, "routing to human per guardrail policy")
	return true, factors, risk
}

// complianceChecks 确定性合规检查。前置检索未被计划激活的规则空泛通过：
// 未尝试不等于不合规
func (a *Authority) complianceChecks(in *Input) []common.CheckResult {
	var out []common.CheckResult

	recordsActivated := in.Plan.Activated(evidence.SourceRecords)
	if in.Intent.IssueType == common.IssueRefundRequest {
		check := common.CheckResult{Name: CheckRefundDelivery}
		if !recordsActivated {
			check.Passed = true
			check.Vacuous = true
			check.Detail = "records lookup not activated"
		} else if orderDelivered(in.Evidence) {
			check.Passed = true
			check.Detail = "order reached delivered state"
		} else {
			check.Detail = "no evidence of delivered order"
		}
		out = append(out, check)
	}

	policyActivated := in.Plan.Activated(evidence.SourcePolicy)
	check := common.CheckResult{Name: CheckPolicyGrounded}
	if !policyActivated {
		check.Passed = true
		check.Vacuous = true
		check.Detail = "policy search not activated"
	} else if hasSuccess(in.Evidence, evidence.SourcePolicy) {
		check.Passed = true
		check.Detail = "policy evidence retrieved"
	} else {
		check.Detail = "policy search activated but returned no usable evidence"
	}
	out = append(out, check)

	return out
}

func safetyCheck(it *common.Intent) common.CheckResult {
	c := common.CheckResult{Name: CheckSafety, Passed: true}
	if it != nil && len(it.SafetyFlags) > 0 {
		c.Passed = false
		c.Detail = strings.Join(it.SafetyFlags, ", ")
	}
	return c
}

const judgePrompt = `你是外卖平台客服的路由决策器。合规与安全检查均已通过。
根据分析结果决定本次请求由系统自动处理（auto）还是转人工（human），输出 JSON（仅输出合法 JSON）：
{"decision":"auto" 或 "human","risk":"low|medium|high|critical","key_factors":["3-5 条简短理由"]}
- 证据质量低、假设置信度低、需要更多数据时倾向 human。
- key_factors 必须引用具体事实（假设、证据缺口、失败工具）。`

// judge 折叠事实为单一判断；解析失败走确定性回退
func (a *Authority) judge(ctx context.Context, in *Input) (common.Route, common.Risk, []string) {
	if a.client == nil {
		return a.deterministicJudge(in)
	}
	prompt := judgePrompt + "\n\n" + judgeFacts(in)
	out, err := llm.GenerateObject[judgment](ctx, a.client, prompt,
		llm.GenerateOptions{Temperature: 0.2, MaxTokens: 512})
	if err != nil {
		metrics.SchemaFallbackTotal.WithLabelValues("route").Inc()
		a.logger.Warn("routing judgment fallback", "error", err)
		return a.deterministicJudge(in)
	}

	decision := common.Route(out.Decision)
	if decision != common.RouteAuto && decision != common.RouteHuman {
		return a.deterministicJudge(in)
	}
	risk := common.Risk(out.Risk)
	switch risk {
	case common.RiskLow, common.RiskMedium, common.RiskHigh, common.RiskCritical:
	default:
		risk = common.RiskMedium
	}
	factors := out.KeyFactors
	if len(factors) == 0 {
		factors = []string{"model judgment without stated factors"}
	}
	if len(factors) > 5 {
		factors = factors[:5]
	}
	return decision, risk, factors
}

// deterministicJudge 模型不可用或输出非法时的保守折叠
func (a *Authority) deterministicJudge(in *Input) (common.Route, common.Risk, []string) {
	factors := []string{
		fmt.Sprintf("blended confidence %.2f", in.Confidence),
		"evidence quality " + string(in.Analysis.EvidenceQuality),
		"advisory route " + string(in.Plan.AdvisoryRoute),
	}
	autoOK := in.Plan.AdvisoryRoute == common.RouteAuto &&
		in.Confidence >= in.Floor &&
		len(in.Retrieval.CriticalFailures) == 0 &&
		!in.Analysis.NeedsMoreData
	if autoOK {
		return common.RouteAuto, riskFromSeverity(in.Intent.Severity), factors
	}
	factors = append(factors, "conservative fallback to human")
	return common.RouteHuman, common.RiskMedium, factors
}

func riskFromSeverity(s common.Severity) common.Risk {
	switch s {
	case common.SeverityHigh:
		return common.RiskHigh
	case common.SeverityMedium:
		return common.RiskMedium
	default:
		return common.RiskLow
	}
}

func judgeFacts(in *Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "意图：%s（severity=%s，sla_risk=%v）\n", in.Intent.IssueType, in.Intent.Severity, in.Intent.SLARisk)
	fmt.Fprintf(&b, "综合置信度：%.2f\n", in.Confidence)
	fmt.Fprintf(&b, "证据质量：%s，needs_more_data=%v\n", in.Analysis.EvidenceQuality, in.Analysis.NeedsMoreData)
	if len(in.Retrieval.CriticalFailures) > 0 {
		fmt.Fprintf(&b, "失败的关键工具：%s\n", strings.Join(in.Retrieval.CriticalFailures, ", "))
	}
	if top := in.Analysis.TopHypothesis(); top != nil {
		fmt.Fprintf(&b, "首要假设（%.2f）：%s\n", top.Confidence, top.Statement)
	}
	for _, act := range in.Analysis.Actions {
		fmt.Fprintf(&b, "候选动作（%.2f）：%s\n", act.Confidence, act.Action)
	}
	if len(in.Analysis.Conflicts) > 0 {
		fmt.Fprintf(&b, "证据冲突：%s\n", strings.Join(in.Analysis.Conflicts, "；"))
	}
	if len(in.Analysis.Gaps) > 0 {
		fmt.Fprintf(&b, "证据缺口：%s\n", strings.Join(in.Analysis.Gaps, "；"))
	}
	fmt.Fprintf(&b, "计划建议路由：%s\n", in.Plan.AdvisoryRoute)
	return b.String()
}

// orderDelivered 在 records 信封中寻找已送达订单的证据
func orderDelivered(ev *evidence.Set) bool {
	for _, e := range ev.Get(evidence.SourceRecords) {
		if e.Result.Status != evidence.StatusSuccess {
			continue
		}
		payload, ok := e.Payload.(map[string]any)
		if !ok {
			continue
		}
		switch o := payload["order"].(type) {
		case *records.Order:
			if o.Delivered() {
				return true
			}
		case map[string]any:
			if s, ok := o["status"].(string); ok && s == "delivered" {
				return true
			}
		}
	}
	return false
}

// hasSuccess 某证据源是否存在成功且非零置信度的信封
func hasSuccess(ev *evidence.Set, source string) bool {
	for _, e := range ev.Get(source) {
		if e.Result.Status == evidence.StatusSuccess && e.Confidence > 0 {
			return true
		}
	}
	return false
}
