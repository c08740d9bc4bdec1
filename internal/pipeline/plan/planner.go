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

// Planner 计划阶段接口：选择要激活的证据源并给出建议路由。
// 建议路由不具约束力，路由权威可任意推翻
type Planner interface {
	Plan(ctx context.Context, c *common.Case, it *common.Intent) (*common.Plan, error)
}

// sanitize 剔除未知证据源，保证激活集是已注册工具的子集
func sanitize(activate []string) []string {
	known := make(map[string]bool)
	for _, s := range evidence.KnownSources() {
		known[s] = true
	}
	var out []string
	seen := make(map[string]bool)
	for _, s := range activate {
		if known[s] && !seen[s] {
			out = append(out, s)
			seen[s] = true
		}
	}
	return out
}
