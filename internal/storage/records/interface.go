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
)

// Order 订单记录
type Order struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customer_id"`
	CourierID    string    `json:"courier_id,omitempty"`
	RestaurantID string    `json:"restaurant_id,omitempty"`
	ZoneID       string    `json:"zone_id,omitempty"`
	Status       string    `json:"status"` // placed | preparing | picked_up | delivering | delivered | cancelled
	Items        []string  `json:"items,omitempty"`
	TotalCents   int64     `json:"total_cents"`
	PlacedAt     time.Time `json:"placed_at"`
	PromisedAt   time.Time `json:"promised_at"`
	DeliveredAt  time.Time `json:"delivered_at,omitempty"`
}

// Delivered 订单是否已送达
func (o *Order) Delivered() bool {
	return o != nil && o.Status == "delivered"
}

// Customer 客户记录
type Customer struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Tier         string    `json:"tier"` // regular | premium
	OrderCount   int       `json:"order_count"`
	RefundCount  int       `json:"refund_count"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Courier 骑手记录
type Courier struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ZoneID   string  `json:"zone_id,omitempty"`
	OnShift  bool    `json:"on_shift"`
	Rating   float64 `json:"rating"`
}

// Store 运营记录只读存储接口；管线不写运营数据
type Store interface {
	// GetOrder 根据 ID 获取订单，不存在时返回 errors.ErrNotFound
	GetOrder(ctx context.Context, id string) (*Order, error)
	// GetCustomer 根据 ID 获取客户
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	// GetCourier 根据 ID 获取骑手
	GetCourier(ctx context.Context, id string) (*Courier, error)
	// ListOrdersByCustomer 列出客户近期订单（按下单时间降序，最多 limit 条）
	ListOrdersByCustomer(ctx context.Context, customerID string, limit int) ([]*Order, error)
	// Close 关闭存储连接
	Close() error
}
