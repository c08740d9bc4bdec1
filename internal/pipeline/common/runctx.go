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
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"support-platform/internal/evidence"
)

// ErrSlotWritten 槽位已被写入；每个槽位只允许其产出阶段写一次
var ErrSlotWritten = errors.New("run slot already written")

// RunContext 一次运行的全部状态。每个槽位由且仅由对应阶段写入一次，
// 写入后对下游只读；证据集与事件轨迹为追加式，可并发追加。
type RunContext struct {
	RunID     string
	StartedAt time.Time

	mu        sync.Mutex
	caseData  *Case
	intent    *Intent
	plan      *Plan
	analysis  *Analysis
	decision  *RoutingDecision
	retrieval map[string]RetrievalStatus

	Evidence *evidence.Set

	events []Event
}

// NewRunContext 创建运行上下文
func NewRunContext() *RunContext {
	return &RunContext{
		RunID:     "run-" + uuid.New().String(),
		StartedAt: time.Now(),
		Evidence:  evidence.NewSet(),
	}
}

// SetCase 写入入案结果；重复写入返回 ErrSlotWritten
func (r *RunContext) SetCase(c *Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.caseData != nil {
		return ErrSlotWritten
	}
	r.caseData = c
	return nil
}

// Case 读取入案结果，未写入时返回 nil
func (r *RunContext) Case() *Case {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.caseData
}

// SetIntent 写入意图分类结果
func (r *RunContext) SetIntent(i *Intent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.intent != nil {
		return ErrSlotWritten
	}
	r.intent = i
	return nil
}

// Intent 读取意图分类结果
func (r *RunContext) Intent() *Intent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.intent
}

// SetPlan 写入检索计划
func (r *RunContext) SetPlan(p *Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.plan != nil {
		return ErrSlotWritten
	}
	r.plan = p
	return nil
}

// Plan 读取检索计划
func (r *RunContext) Plan() *Plan {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.plan
}

// SetAnalysis 写入融合推理结果
func (r *RunContext) SetAnalysis(a *Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.analysis != nil {
		return ErrSlotWritten
	}
	r.analysis = a
	return nil
}

// Analysis 读取融合推理结果
func (r *RunContext) Analysis() *Analysis {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.analysis
}

// SetDecision 写入路由决定
func (r *RunContext) SetDecision(d *RoutingDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.decision != nil {
		return ErrSlotWritten
	}
	r.decision = d
	return nil
}

// Decision 读取路由决定
func (r *RunContext) Decision() *RoutingDecision {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decision
}

// SetRetrieval 写入检索状态汇总
func (r *RunContext) SetRetrieval(m map[string]RetrievalStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.retrieval != nil {
		return ErrSlotWritten
	}
	r.retrieval = m
	return nil
}

// Retrieval 读取检索状态汇总，未写入时返回空 map
func (r *RunContext) Retrieval() map[string]RetrievalStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.retrieval == nil {
		return map[string]RetrievalStatus{}
	}
	out := make(map[string]RetrievalStatus, len(r.retrieval))
	for k, v := range r.retrieval {
		out[k] = v
	}
	return out
}

// Emit 追加一条运行事件，可并发调用
func (r *RunContext) Emit(eventType, stage string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{
		At:      time.Now(),
		Type:    eventType,
		Stage:   stage,
		Payload: payload,
	})
}

// Events 返回事件轨迹快照
func (r *RunContext) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Elapsed 运行至今耗时
func (r *RunContext) Elapsed() time.Duration {
	return time.Since(r.StartedAt)
}
