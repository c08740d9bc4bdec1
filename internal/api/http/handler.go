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

package http

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"support-platform/internal/model/llm"
	"support-platform/internal/pipeline"
	"support-platform/internal/pipeline/intake"
	"support-platform/pkg/metrics"
)

// Handler HTTP 请求处理器
type Handler struct {
	pipeline    *pipeline.Pipeline
	rateLimiter *llm.LLMRateLimiter
	startedAt   time.Time
}

// NewHandler 创建 HTTP 处理器
func NewHandler(p *pipeline.Pipeline) *Handler {
	return &Handler{pipeline: p, startedAt: time.Now()}
}

// SetRateLimiter 注入限流器以暴露用量统计
func (h *Handler) SetRateLimiter(rl *llm.LLMRateLimiter) {
	h.rateLimiter = rl
}

// HealthCheck 健康检查
// GET /api/health
func (h *Handler) HealthCheck(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.startedAt).String(),
	})
}

// HandleCase 处理一次客服请求：入案 → 决策 → 回复或转人工
// POST /api/cases
func (h *Handler) HandleCase(c context.Context, ctx *app.RequestContext) {
	var req intake.Request
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": "text is required",
		})
		return
	}
	if req.ConversationID == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": "conversation_id is required",
		})
		return
	}
	if h.pipeline == nil {
		ctx.JSON(consts.StatusServiceUnavailable, map[string]string{
			"error": "pipeline is not configured",
		})
		return
	}

	result, err := h.pipeline.Run(c, &req)
	if err != nil {
		hlog.CtxErrorf(c, "pipeline run failed for conversation %s: %v", req.ConversationID, err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
		return
	}
	ctx.JSON(consts.StatusOK, result)
}

// Metrics Prometheus 文本格式指标
// GET /metrics
func (h *Handler) Metrics(c context.Context, ctx *app.RequestContext) {
	ctx.SetContentType("text/plain; version=0.0.4; charset=utf-8")
	ctx.SetStatusCode(consts.StatusOK)
	if err := metrics.WritePrometheus(ctx.Response.BodyWriter()); err != nil {
		hlog.CtxErrorf(c, "write metrics failed: %v", err)
	}
}

// SystemStatus 运行状态（含 LLM 限流用量）
// GET /api/system/status
func (h *Handler) SystemStatus(c context.Context, ctx *app.RequestContext) {
	status := map[string]any{
		"status": "running",
		"uptime": time.Since(h.startedAt).String(),
	}
	if h.rateLimiter != nil {
		status["llm_usage"] = h.rateLimiter.Stats()
	}
	ctx.JSON(consts.StatusOK, status)
}
