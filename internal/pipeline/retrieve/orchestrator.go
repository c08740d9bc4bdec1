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

package retrieve

import (
	"context"
	"fmt"
	"sync"
	"time"

	"support-platform/internal/adapters"
	"support-platform/internal/evidence"
	"support-platform/internal/pipeline/common"
	"support-platform/pkg/log"
	"support-platform/pkg/metrics"
	"support-platform/pkg/tracing"
)

// Outcome 检索阶段汇总输出
type Outcome struct {
	// Statuses 每证据源的检索状态
	Statuses map[string]common.RetrievalStatus
	// CriticalFailures 关键失败工具名列表，供路由权威折叠
	CriticalFailures []string
	// BlockAuto 任一 safety_critical 失败时为 true，本次运行禁止 auto
	BlockAuto bool
}

// Orchestrator 并行检索编排器。对激活集内每个证据源并发调用一次，
// 全部汇合后才返回；单源失败不取消同级调用
type Orchestrator struct {
	sources map[string]adapters.Source
	policy  *evidence.Policy
	logger  *log.Logger
}

// NewOrchestrator 创建检索编排器
func NewOrchestrator(policy *evidence.Policy, logger *log.Logger, sources ...adapters.Source) *Orchestrator {
	m := make(map[string]adapters.Source, len(sources))
	for _, s := range sources {
		m[s.Name()] = s
	}
	return &Orchestrator{sources: m, policy: policy, logger: logger}
}

type callResult struct {
	source    string
	envelope  *evidence.Envelope
	err       error
	effective evidence.Criticality
}

// Run 执行检索。空激活集直接返回空结果；并发数以激活集为界。
// 失败在这里被归类为数据，不向上抛错
func (o *Orchestrator) Run(ctx context.Context, rc *common.RunContext, c *common.Case, it *common.Intent, p *common.Plan) *Outcome {
	out := &Outcome{Statuses: make(map[string]common.RetrievalStatus)}
	if p == nil || len(p.Activate) == 0 {
		return out
	}

	results := make(chan callResult, len(p.Activate))
	var wg sync.WaitGroup
	for _, name := range p.Activate {
		src, ok := o.sources[name]
		if !ok {
			// 计划阶段已做子集校验，此处只防御配置错位
			o.logger.Warn("activated source not registered", "source", name)
			continue
		}
		wg.Add(1)
		go func(src adapters.Source) {
			defer wg.Done()
			results <- o.call(ctx, rc, src, c, it)
		}(src)
	}
	wg.Wait()
	close(results)

	for r := range results {
		status := out.Statuses[r.source]
		if r.err != nil {
			status.Failed = append(status.Failed, r.source)
			effect := o.policy.OnFailure(r.effective)
			metrics.ToolFailTotal.WithLabelValues(r.source, r.effective.String()).Inc()
			rc.Emit("tool_failed", "retrieve", map[string]any{
				"source":      r.source,
				"criticality": r.effective.String(),
				"error":       r.err.Error(),
			})
			if effect.RecordEnvelope {
				rc.Evidence.Append(evidence.Failed(r.source, r.err, r.source+"_unavailable"))
			}
			if effect.MarkCritical {
				out.CriticalFailures = append(out.CriticalFailures, r.source)
			}
			if effect.BlockAuto {
				out.BlockAuto = true
			}
		} else {
			status.Succeeded = append(status.Succeeded, r.source)
			rc.Evidence.Append(r.envelope)
		}
		status.Completed = true
		out.Statuses[r.source] = status
	}
	return out
}

// call 单源调用：带本源超时，结果按策略归类
func (o *Orchestrator) call(ctx context.Context, rc *common.RunContext, src adapters.Source, c *common.Case, it *common.Intent) callResult {
	name := src.Name()
	effective := evidence.Effective(o.policy.Declared(name), src.Contextual(c, it))

	callCtx, cancel := context.WithTimeout(ctx, o.policy.Timeout(name))
	defer cancel()
	callCtx, span := tracing.StartToolSpan(callCtx, name, effective.String())
	defer span.End()

	started := time.Now()
	env, err := src.Retrieve(callCtx, c, it)
	metrics.ToolDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())

	if err == nil && callCtx.Err() != nil {
		// 超时与失败同类处理
		err = fmt.Errorf("tool %s: %w", name, callCtx.Err())
	}
	if err != nil {
		return callResult{source: name, err: err, effective: effective}
	}
	return callResult{source: name, envelope: env, effective: effective}
}
