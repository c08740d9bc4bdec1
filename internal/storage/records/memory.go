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
	"sort"
	"sync"

	"support-platform/pkg/errors"
)

// MemoryStore 内存运营记录存储，用于本地开发与测试
type MemoryStore struct {
	mu        sync.RWMutex
	orders    map[string]*Order
	customers map[string]*Customer
	couriers  map[string]*Courier
}

// NewMemoryStore 创建内存运营记录存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:    make(map[string]*Order),
		customers: make(map[string]*Customer),
		couriers:  make(map[string]*Courier),
	}
}

// PutOrder 写入订单（测试/种子数据用）
func (s *MemoryStore) PutOrder(o *Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// PutCustomer 写入客户（测试/种子数据用）
func (s *MemoryStore) PutCustomer(c *Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

// PutCourier 写入骑手（测试/种子数据用）
func (s *MemoryStore) PutCourier(c *Courier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.couriers[c.ID] = c
}

// GetOrder 根据 ID 获取订单
func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "order %s", id)
	}
	return o, nil
}

// GetCustomer 根据 ID 获取客户
func (s *MemoryStore) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "customer %s", id)
	}
	return c, nil
}

// GetCourier 根据 ID 获取骑手
func (s *MemoryStore) GetCourier(ctx context.Context, id string) (*Courier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.couriers[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "courier %s", id)
	}
	return c, nil
}

// ListOrdersByCustomer 列出客户近期订单
func (s *MemoryStore) ListOrdersByCustomer(ctx context.Context, customerID string, limit int) ([]*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Order
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.After(out[j].PlacedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close 关闭存储连接
func (s *MemoryStore) Close() error {
	return nil
}
