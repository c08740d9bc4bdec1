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

package plan

import (
	"context"

	"support-platform/internal/evidence"
	"support-platform/internal/pipeline/common"
)

// RulePlanner 规则计划器：按问题类型查激活表。确定性，也是
// LLMPlanner 解析失败时的回退
type RulePlanner struct{}

// NewRulePlanner 创建规则计划器
func NewRulePlanner() *RulePlanner {
	return &RulePlanner{}
}

// Plan 实现 Planner
func (p *RulePlanner) Plan(ctx context.Context, c *common.Case, it *common.Intent) (*common.Plan, error) {
	// 会话类意图不检索，直接建议自动处理
	if it.IssueType.Conversational() {
		return &common.Plan{
			Activate:      nil,
			AdvisoryRoute: common.RouteAuto,
			Rationale:     "conversational intent, no evidence needed",
		}, nil
	}

	var activate []string
	advisory := common.RouteAuto
	switch it.IssueType {
	case common.IssueOrderStatus, common.IssueDeliveryDelay:
		activate = []string{evidence.SourceRecords, evidence.SourceRecall}
	case common.IssueRefundRequest, common.IssueMissingItems, common.IssuePaymentIssue:
		activate = []string{evidence.SourceRecords, evidence.SourcePolicy, evidence.SourceRecall}
	case common.IssueAccountIssue:
		activate = []string{evidence.SourcePolicy, evidence.SourceRecall}
	case common.IssueComplaint:
		activate = []string{evidence.SourceRecords, evidence.SourcePolicy, evidence.SourceRecall}
		advisory = common.RouteHuman
	default:
		activate = []string{evidence.SourcePolicy, evidence.SourceRecall}
	}

	if len(it.SafetyFlags) > 0 || it.Severity == common.SeverityHigh {
		advisory = common.RouteHuman
	}
	return &common.Plan{
		Activate:      sanitize(activate),
		AdvisoryRoute: advisory,
		Rationale:     "rule table for issue type " + string(it.IssueType),
	}, nil
}
