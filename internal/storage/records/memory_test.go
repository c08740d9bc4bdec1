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
	"time"

	"support-platform/pkg/errors"
)

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if _, err := s.GetOrder(ctx, "missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetOrder(missing) = %v, want ErrNotFound", err)
	}
	if _, err := s.GetCustomer(ctx, "missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetCustomer(missing) = %v", err)
	}
	if _, err := s.GetCourier(ctx, "missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetCourier(missing) = %v", err)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.PutOrder(&Order{ID: "o1", CustomerID: "u1", Status: "delivered", PlacedAt: time.Now()})
	s.PutCustomer(&Customer{ID: "u1", Tier: "gold"})

	o, err := s.GetOrder(ctx, "o1")
	if err != nil || o.CustomerID != "u1" {
		t.Fatalf("GetOrder: %v %+v", err, o)
	}
	if !o.Delivered() {
		t.Error("status=delivered 应判定已送达")
	}
	c, err := s.GetCustomer(ctx, "u1")
	if err != nil || c.Tier != "gold" {
		t.Errorf("GetCustomer: %v %+v", err, c)
	}
}

func TestListOrdersByCustomer(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, o := range []*Order{
		{ID: "o1", CustomerID: "u1"},
		{ID: "o2", CustomerID: "u1"},
		{ID: "o3", CustomerID: "u2"},
	} {
		s.PutOrder(o)
	}
	got, err := s.ListOrdersByCustomer(ctx, "u1", 10)
	if err != nil || len(got) != 2 {
		t.Errorf("ListOrdersByCustomer = %v, %v", got, err)
	}
	limited, _ := s.ListOrdersByCustomer(ctx, "u1", 1)
	if len(limited) != 1 {
		t.Errorf("limit 失效：%v", limited)
	}
}
