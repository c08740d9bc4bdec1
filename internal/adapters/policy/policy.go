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

package policy

import (
	"context"
	"time"

	einoembedding "github.com/cloudwego/eino/components/embedding"
	einoretriever "github.com/cloudwego/eino/components/retriever"

	"support-platform/internal/evidence"
	"support-platform/internal/pipeline/common"
)

// SourceName 工具名
const SourceName = evidence.SourcePolicy

// Adapter 政策文档证据源：经 eino Retriever 做向量检索
type Adapter struct {
	retriever einoretriever.Retriever
	embedder  einoembedding.Embedder
	topK      int
}

// NewAdapter 创建政策检索适配器
func NewAdapter(retriever einoretriever.Retriever, embedder einoembedding.Embedder, topK int) *Adapter {
	if topK <= 0 {
		topK = 5
	}
	return &Adapter{retriever: retriever, embedder: embedder, topK: topK}
}

// Name 实现 adapters.Source
func (a *Adapter) Name() string { return SourceName }

// Contextual 退款/支付类问题政策口径直接决定处置，安全标记在场时升至 safety_critical
func (a *Adapter) Contextual(c *common.Case, intent *common.Intent) evidence.Criticality {
	if intent == nil {
		return evidence.NonCritical
	}
	if len(intent.SafetyFlags) > 0 {
		return evidence.SafetyCritical
	}
	switch intent.IssueType {
	case common.IssueRefundRequest, common.IssuePaymentIssue:
		return evidence.DecisionCritical
	}
	return evidence.NonCritical
}

// Retrieve 实现 adapters.Source
func (a *Adapter) Retrieve(ctx context.Context, c *common.Case, intent *common.Intent) (*evidence.Envelope, error) {
	started := time.Now()

	query := c.Normalized
	if query == "" {
		query = c.RawText
	}
	if intent != nil && intent.IssueType != "" && intent.IssueType != common.IssueUnknown {
		query = string(intent.IssueType) + ": " + query
	}

	opts := []einoretriever.Option{einoretriever.WithTopK(a.topK)}
	if a.embedder != nil {
		opts = append(opts, einoretriever.WithEmbedding(a.embedder))
	}
	docs, err := a.retriever.Retrieve(ctx, query, opts...)
	if err != nil {
		return nil, err
	}

	prov := evidence.Provenance{
		Query:   map[string]any{"query": query, "top_k": a.topK},
		Latency: time.Since(started),
	}
	if len(docs) == 0 {
		e := evidence.Absent(SourceName, "no_matching_policy")
		e.Provenance = prov
		return e, nil
	}

	clauses := make([]map[string]any, 0, len(docs))
	best := 0.0
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		score := d.Score()
		if score > best {
			best = score
		}
		ids = append(ids, d.ID)
		clauses = append(clauses, map[string]any{
			"id":      d.ID,
			"content": d.Content,
			"score":   score,
		})
	}

	e := evidence.NewEnvelope(SourceName)
	e.EntityIDs = ids
	e.Confidence = best
	e.Payload = map[string]any{"clauses": clauses}
	e.Provenance = prov
	return e, nil
}
