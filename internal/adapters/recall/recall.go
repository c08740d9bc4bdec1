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

package recall

import (
	"context"
	"time"

	"support-platform/internal/evidence"
	"support-platform/internal/memory"
	"support-platform/internal/pipeline/common"
)

// SourceName 工具名
const SourceName = evidence.SourceRecall

// Adapter 历史记忆证据源：读取客户的 episodic/semantic 记忆。
// 记忆只作背景参考，永远 non_critical
type Adapter struct {
	store memory.Store
	limit int
}

// NewAdapter 创建记忆召回适配器
func NewAdapter(store memory.Store, limit int) *Adapter {
	if limit <= 0 {
		limit = 10
	}
	return &Adapter{store: store, limit: limit}
}

// Name 实现 adapters.Source
func (a *Adapter) Name() string { return SourceName }

// Contextual 记忆缺失从不阻断决策
func (a *Adapter) Contextual(c *common.Case, intent *common.Intent) evidence.Criticality {
	return evidence.NonCritical
}

// Retrieve 实现 adapters.Source
func (a *Adapter) Retrieve(ctx context.Context, c *common.Case, intent *common.Intent) (*evidence.Envelope, error) {
	started := time.Now()

	if c == nil || c.CustomerID == "" {
		e := evidence.Absent(SourceName, "customer_id_missing")
		e.Provenance = evidence.Provenance{Latency: time.Since(started)}
		return e, nil
	}

	entries, err := a.store.ListByCustomer(ctx, c.CustomerID,
		[]memory.Kind{memory.KindEpisodic, memory.KindSemantic}, a.limit)
	if err != nil {
		return nil, err
	}

	prov := evidence.Provenance{
		Query:   map[string]any{"customer_id": c.CustomerID, "limit": a.limit},
		Latency: time.Since(started),
	}
	if len(entries) == 0 {
		e := evidence.Absent(SourceName, "no_history")
		e.Provenance = prov
		return e, nil
	}

	items := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		items = append(items, map[string]any{
			"kind":       string(entry.Kind),
			"summary":    entry.Summary,
			"created_at": entry.CreatedAt,
		})
	}

	e := evidence.NewEnvelope(SourceName)
	e.EntityIDs = []string{c.CustomerID}
	e.Confidence = 0.8
	e.Payload = map[string]any{"memories": items}
	e.Provenance = prov
	return e, nil
}
