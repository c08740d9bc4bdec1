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

// Package pipeline 按阶段串联一次客服请求的完整处理：
// 入案 → 意图 → 计划 → 并行检索 → 融合推理 → 路由 → 派发。
// 一次运行总是以回答或人工交接收尾，从不向调用方抛出未处理错误。
package pipeline

import (
	"context"
	"time"

	"support-platform/internal/pipeline/common"
	"support-platform/internal/pipeline/dispatch"
	"support-platform/internal/pipeline/intake"
	"support-platform/internal/pipeline/intent"
	"support-platform/internal/pipeline/plan"
	"support-platform/internal/pipeline/reason"
	"support-platform/internal/pipeline/retrieve"
	"support-platform/internal/pipeline/route"
	"support-platform/pkg/log"
	"support-platform/pkg/metrics"
	"support-platform/pkg/tracing"
)

// Pipeline 客服决策管线
type Pipeline struct {
	intake       *intake.Stage
	classifier   *intent.Classifier
	planner      plan.Planner
	orchestrator *retrieve.Orchestrator
	fuser        *reason.Fuser
	authority    *route.Authority
	dispatcher   *dispatch.Dispatcher

	floor         float64
	continuityTTL string
	logger        *log.Logger
}

// Config 管线装配参数
type Config struct {
	Intake        *intake.Stage
	Classifier    *intent.Classifier
	Planner       plan.Planner
	Orchestrator  *retrieve.Orchestrator
	Fuser         *reason.Fuser
	Authority     *route.Authority
	Dispatcher    *dispatch.Dispatcher
	Floor         float64
	ContinuityTTL string
	Logger        *log.Logger
}

// New 装配管线
func New(cfg Config) *Pipeline {
	return &Pipeline{
		intake:        cfg.Intake,
		classifier:    cfg.Classifier,
		planner:       cfg.Planner,
		orchestrator:  cfg.Orchestrator,
		fuser:         cfg.Fuser,
		authority:     cfg.Authority,
		dispatcher:    cfg.Dispatcher,
		floor:         cfg.Floor,
		continuityTTL: cfg.ContinuityTTL,
		logger:        cfg.Logger,
	}
}

// Run 处理一次客服请求
func (p *Pipeline) Run(ctx context.Context, req *intake.Request) (*dispatch.Result, error) {
	rc := common.NewRunContext()
	logger := p.logger.WithRun(rc.RunID)
	ctx, runSpan := tracing.StartRunSpan(ctx, rc.RunID, req.ConversationID)
	defer runSpan.End()
	started := time.Now()

	// 入案
	stageCtx, span := tracing.StartStageSpan(ctx, "intake")
	c, err := p.intake.Run(stageCtx, req)
	span.End()
	if err != nil {
		return nil, common.NewStageError("intake", rc.RunID, err)
	}
	if err := rc.SetCase(c); err != nil {
		return nil, common.NewStageError("intake", rc.RunID, err)
	}
	rc.Emit("case_created", "intake", map[string]any{"order_id": c.OrderID, "confidence": c.Confidence})

	// 意图分类
	stageCtx, span = tracing.StartStageSpan(ctx, "intent")
	it, err := p.classifier.Classify(stageCtx, c)
	span.End()
	if err != nil {
		return nil, common.NewStageError("intent", rc.RunID, err)
	}
	if err := rc.SetIntent(it); err != nil {
		return nil, common.NewStageError("intent", rc.RunID, err)
	}
	rc.Emit("intent_classified", "intent", map[string]any{
		"issue_type": string(it.IssueType),
		"severity":   string(it.Severity),
		"confidence": it.Confidence,
	})

	// 计划
	stageCtx, span = tracing.StartStageSpan(ctx, "plan")
	pl, err := p.planner.Plan(stageCtx, c, it)
	span.End()
	if err != nil {
		return nil, common.NewStageError("plan", rc.RunID, err)
	}
	if err := rc.SetPlan(pl); err != nil {
		return nil, common.NewStageError("plan", rc.RunID, err)
	}
	rc.Emit("plan_created", "plan", map[string]any{
		"activate": pl.Activate,
		"advisory": string(pl.AdvisoryRoute),
	})

	// 并行检索：全部汇合后才进入下一阶段
	stageCtx, span = tracing.StartStageSpan(ctx, "retrieve")
	outcome := p.orchestrator.Run(stageCtx, rc, c, it, pl)
	span.End()
	if err := rc.SetRetrieval(outcome.Statuses); err != nil {
		return nil, common.NewStageError("retrieve", rc.RunID, err)
	}
	rc.Emit("retrieval_done", "retrieve", map[string]any{
		"envelopes":         rc.Evidence.Len(),
		"critical_failures": outcome.CriticalFailures,
		"block_auto":        outcome.BlockAuto,
	})

	// 融合推理
	stageCtx, span = tracing.StartStageSpan(ctx, "reason")
	analysis := p.fuser.Fuse(stageCtx, c, it, rc.Evidence)
	span.End()
	if err := rc.SetAnalysis(analysis); err != nil {
		return nil, common.NewStageError("reason", rc.RunID, err)
	}
	blended := common.BlendConfidence(c.Confidence, it.Confidence, analysis.Confidence)
	rc.Emit("analysis_done", "reason", map[string]any{
		"confidence": analysis.Confidence,
		"blended":    blended,
		"quality":    string(analysis.EvidenceQuality),
	})

	// 路由
	stageCtx, span = tracing.StartStageSpan(ctx, "route")
	decision := p.authority.Decide(stageCtx, &route.Input{
		Case:       c,
		Intent:     it,
		Plan:       pl,
		Evidence:   rc.Evidence,
		Retrieval:  outcome,
		Analysis:   analysis,
		Confidence: blended,
		Floor:      p.floor,
	})
	span.End()
	if err := rc.SetDecision(decision); err != nil {
		return nil, common.NewStageError("route", rc.RunID, err)
	}
	rc.Emit("decision_made", "route", map[string]any{
		"decision": string(decision.Decision),
		"risk":     string(decision.Risk),
		"factors":  decision.KeyFactors,
	})

	// 派发
	stageCtx, span = tracing.StartStageSpan(ctx, "dispatch")
	result := p.dispatcher.Dispatch(stageCtx, rc, decision)
	span.End()

	// 会话延续写回不阻断响应
	p.intake.SaveContinuity(ctx, c, p.continuityTTL)

	metrics.RunTotal.WithLabelValues(string(decision.Decision)).Inc()
	metrics.RunDuration.WithLabelValues(string(decision.Decision)).Observe(time.Since(started).Seconds())
	logger.Info("run completed",
		"conversation_id", c.ConversationID,
		"issue_type", string(it.IssueType),
		"decision", string(decision.Decision),
		"confidence", blended,
		"elapsed", time.Since(started).String(),
	)
	return result, nil
}
