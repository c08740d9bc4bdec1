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

package records

import (
	"context"
	"time"

	"support-platform/internal/evidence"
	"support-platform/internal/pipeline/common"
	"support-platform/internal/storage/records"
	"support-platform/pkg/errors"
)

// SourceName 工具名
const SourceName = evidence.SourceRecords

// Adapter 运营记录证据源：订单为主查询，客户与骑手为受预算约束的子查询
type Adapter struct {
	store      records.Store
	callBudget int
}

// NewAdapter 创建运营记录适配器。callBudget 限制一次 Retrieve 内的
// 存储调用总次数（含主查询）
func NewAdapter(store records.Store, callBudget int) *Adapter {
	if callBudget <= 0 {
		callBudget = 4
	}
	return &Adapter{store: store, callBudget: callBudget}
}

// Name 实现 adapters.Source
func (a *Adapter) Name() string { return SourceName }

// Contextual 安全标记在场时升至 safety_critical：此时订单事实决定能否自动处置
func (a *Adapter) Contextual(c *common.Case, intent *common.Intent) evidence.Criticality {
	if intent != nil && len(intent.SafetyFlags) > 0 {
		return evidence.SafetyCritical
	}
	return evidence.NonCritical
}

// Retrieve 实现 adapters.Source
func (a *Adapter) Retrieve(ctx context.Context, c *common.Case, intent *common.Intent) (*evidence.Envelope, error) {
	started := time.Now()

	if c == nil || c.OrderID == "" {
		e := evidence.Absent(SourceName, "order_id_missing")
		e.Provenance = evidence.Provenance{Latency: time.Since(started)}
		return e, nil
	}

	budget := a.callBudget
	query := map[string]any{"order_id": c.OrderID}

	order, err := a.store.GetOrder(ctx, c.OrderID)
	budget--
	if errors.Is(err, errors.ErrNotFound) {
		// 查无订单是数据而非故障
		e := evidence.Absent(SourceName, "order_not_found")
		e.EntityIDs = []string{c.OrderID}
		e.Provenance = evidence.Provenance{Query: query, Latency: time.Since(started)}
		return e, nil
	}
	if err != nil {
		return nil, err
	}

	payload := map[string]any{"order": order}
	entityIDs := []string{order.ID}
	var gaps []string

	if order.CustomerID != "" && budget > 0 {
		budget--
		if customer, err := a.store.GetCustomer(ctx, order.CustomerID); err == nil {
			payload["customer"] = customer
			entityIDs = append(entityIDs, customer.ID)
		} else {
			gaps = append(gaps, "customer_unavailable")
		}
	}
	if order.CourierID != "" && budget > 0 {
		budget--
		if courier, err := a.store.GetCourier(ctx, order.CourierID); err == nil {
			payload["courier"] = courier
			entityIDs = append(entityIDs, courier.ID)
		} else {
			gaps = append(gaps, "courier_unavailable")
		}
	}
	if order.CustomerID != "" && budget > 0 {
		budget--
		if history, err := a.store.ListOrdersByCustomer(ctx, order.CustomerID, 5); err == nil && len(history) > 0 {
			payload["recent_orders"] = history
		}
	}

	e := evidence.NewEnvelope(SourceName)
	e.EntityIDs = entityIDs
	e.Confidence = 1.0
	e.Payload = payload
	e.Gaps = gaps
	e.Provenance = evidence.Provenance{Query: query, Latency: time.Since(started)}
	return e, nil
}
