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
	"testing"

	"support-platform/internal/evidence"
	"support-platform/internal/pipeline/common"
	storerecords "support-platform/internal/storage/records"
)

func seededStore() *storerecords.MemoryStore {
	s := storerecords.NewMemoryStore()
	s.PutOrder(&storerecords.Order{ID: "o1", CustomerID: "u1", CourierID: "k1", Status: "delivered"})
	s.PutOrder(&storerecords.Order{ID: "o2", CustomerID: "u1", Status: "preparing"})
	s.PutCustomer(&storerecords.Customer{ID: "u1", Tier: "gold", OrderCount: 12})
	s.PutCourier(&storerecords.Courier{ID: "k1", OnShift: true, Rating: 4.8})
	return s
}

func TestRetrieveMissingOrderID(t *testing.T) {
	a := NewAdapter(seededStore(), 0)
	e, err := a.Retrieve(context.Background(), &common.Case{}, nil)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if e.Result.Status != evidence.StatusSuccess || e.Confidence != 0 {
		t.Errorf("envelope = %+v", e)
	}
	if len(e.Gaps) != 1 || e.Gaps[0] != "order_id_missing" {
		t.Errorf("gaps = %v", e.Gaps)
	}
}

func TestRetrieveOrderNotFound(t *testing.T) {
	a := NewAdapter(seededStore(), 0)
	e, err := a.Retrieve(context.Background(), &common.Case{OrderID: "nope"}, nil)
	if err != nil {
		t.Fatalf("查无订单是数据而非故障: %v", err)
	}
	if len(e.Gaps) != 1 || e.Gaps[0] != "order_not_found" {
		t.Errorf("gaps = %v", e.Gaps)
	}
}

func TestRetrieveFullLookup(t *testing.T) {
	a := NewAdapter(seededStore(), 4)
	e, err := a.Retrieve(context.Background(), &common.Case{OrderID: "o1"}, nil)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if e.Confidence != 1.0 {
		t.Errorf("confidence = %v", e.Confidence)
	}
	payload := e.Payload.(map[string]any)
	if payload["order"] == nil || payload["customer"] == nil || payload["courier"] == nil {
		t.Errorf("payload keys = %v", payload)
	}
	if payload["recent_orders"] == nil {
		t.Errorf("预算充足时应带出历史订单")
	}
	if len(e.EntityIDs) != 3 {
		t.Errorf("entity ids = %v", e.EntityIDs)
	}
}

// 预算只够主查询时不做子查询
func TestRetrieveBudgetBoundsSubLookups(t *testing.T) {
	a := NewAdapter(seededStore(), 1)
	e, err := a.Retrieve(context.Background(), &common.Case{OrderID: "o1"}, nil)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	payload := e.Payload.(map[string]any)
	if payload["customer"] != nil || payload["courier"] != nil || payload["recent_orders"] != nil {
		t.Errorf("预算 1 不应有子查询：%v", payload)
	}
}

func TestContextualCriticality(t *testing.T) {
	a := NewAdapter(seededStore(), 0)
	if got := a.Contextual(nil, &common.Intent{}); got != evidence.NonCritical {
		t.Errorf("默认 contextual = %s", got)
	}
	if got := a.Contextual(nil, &common.Intent{SafetyFlags: []string{"food_safety"}}); got != evidence.SafetyCritical {
		t.Errorf("安全标记在场 contextual = %s", got)
	}
}
