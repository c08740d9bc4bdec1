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
	"strings"

	"support-platform/internal/model/llm"
	"support-platform/internal/pipeline/common"
	"support-platform/pkg/log"
	"support-platform/pkg/metrics"
)

// planSchema LLM 输出 schema
type planSchema struct {
	Activate      []string `json:"activate"`
	AdvisoryRoute string   `json:"advisory_route"`
	Rationale     string   `json:"rationale"`
}

// LLMPlanner 基于快速模型的计划器。会话类意图与解析失败一律
// 落到 RulePlanner
type LLMPlanner struct {
	client   llm.Client
	fallback *RulePlanner
	logger   *log.Logger
}

// NewLLMPlanner 创建 LLM 计划器
func NewLLMPlanner(client llm.Client, logger *log.Logger) *LLMPlanner {
	return &LLMPlanner{client: client, fallback: NewRulePlanner(), logger: logger}
}

const planPrompt = `你是外卖平台客服的检索计划器。可用证据源：
- records.lookup：订单/客户/骑手运营记录
- policy.search：客服政策文档向量检索
- memory.recall：该客户的历史工单记忆

根据问题类型选择需要激活的证据源子集（可为空），并给出建议路由。
输出格式（仅输出合法 JSON，不要其他文字）：
{"activate":["records.lookup", ...],"advisory_route":"auto" 或 "human","rationale":"一句话理由"}
- 问候、致谢、澄清类消息 activate 为空数组。
- 建议路由仅供参考，不是最终决定。`

// Plan 实现 Planner
func (p *LLMPlanner) Plan(ctx context.Context, c *common.Case, it *common.Intent) (*common.Plan, error) {
	if p.client == nil || it.IssueType.Conversational() {
		return p.fallback.Plan(ctx, c, it)
	}

	prompt := planPrompt + "\n\n问题类型：" + string(it.IssueType) +
		"，严重程度：" + string(it.Severity) +
		"，安全标记：" + strings.Join(it.SafetyFlags, ",") +
		"\n用户消息：" + c.Normalized
	out, err := llm.GenerateObject[planSchema](ctx, p.client, prompt,
		llm.GenerateOptions{Temperature: 0.1, MaxTokens: 512})
	if err != nil {
		metrics.SchemaFallbackTotal.WithLabelValues("plan").Inc()
		p.logger.Warn("plan fallback to rule table", "error", err)
		return p.fallback.Plan(ctx, c, it)
	}

	route := common.Route(out.AdvisoryRoute)
	if route != common.RouteAuto && route != common.RouteHuman {
		route = common.RouteAuto
	}
	return &common.Plan{
		Activate:      sanitize(out.Activate),
		AdvisoryRoute: route,
		Rationale:     out.Rationale,
	}, nil
}
