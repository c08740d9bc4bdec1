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

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"support-platform/pkg/errors"
)

// PgStore Postgres 运营记录存储实现
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore 创建基于 PostgreSQL 的运营记录存储
func NewPgStore(ctx context.Context, dsn string, poolSize int) (*PgStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if poolSize > 0 {
		config.MaxConns = int32(poolSize)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PgStore{pool: pool}, nil
}

// Close 关闭连接池
func (s *PgStore) Close() error {
	s.pool.Close()
	return nil
}

// GetOrder 根据 ID 获取订单
func (s *PgStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, customer_id, COALESCE(courier_id,''), COALESCE(restaurant_id,''), COALESCE(zone_id,''),
		        status, COALESCE(items,'{}'), total_cents, placed_at, promised_at, COALESCE(delivered_at, 'epoch'::timestamptz)
		 FROM orders WHERE id = $1`, id)
	o := &Order{}
	var deliveredAt time.Time
	err := row.Scan(&o.ID, &o.CustomerID, &o.CourierID, &o.RestaurantID, &o.ZoneID,
		&o.Status, &o.Items, &o.TotalCents, &o.PlacedAt, &o.PromisedAt, &deliveredAt)
	if err == pgx.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "order %s", id)
	}
	if err != nil {
		return nil, err
	}
	if deliveredAt.Unix() > 0 {
		o.DeliveredAt = deliveredAt
	}
	return o, nil
}

// GetCustomer 根据 ID 获取客户
func (s *PgStore) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, tier, order_count, refund_count, registered_at FROM customers WHERE id = $1`, id)
	c := &Customer{}
	err := row.Scan(&c.ID, &c.Name, &c.Tier, &c.OrderCount, &c.RefundCount, &c.RegisteredAt)
	if err == pgx.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "customer %s", id)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetCourier 根据 ID 获取骑手
func (s *PgStore) GetCourier(ctx context.Context, id string) (*Courier, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(zone_id,''), on_shift, rating FROM couriers WHERE id = $1`, id)
	c := &Courier{}
	err := row.Scan(&c.ID, &c.Name, &c.ZoneID, &c.OnShift, &c.Rating)
	if err == pgx.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "courier %s", id)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListOrdersByCustomer 列出客户近期订单
func (s *PgStore) ListOrdersByCustomer(ctx context.Context, customerID string, limit int) ([]*Order, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, customer_id, COALESCE(courier_id,''), COALESCE(restaurant_id,''), COALESCE(zone_id,''),
		        status, COALESCE(items,'{}'), total_cents, placed_at, promised_at, COALESCE(delivered_at, 'epoch'::timestamptz)
		 FROM orders WHERE customer_id = $1 ORDER BY placed_at DESC LIMIT $2`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Order
	for rows.Next() {
		o := &Order{}
		var deliveredAt time.Time
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.CourierID, &o.RestaurantID, &o.ZoneID,
			&o.Status, &o.Items, &o.TotalCents, &o.PlacedAt, &o.PromisedAt, &deliveredAt); err != nil {
			return nil, err
		}
		if deliveredAt.Unix() > 0 {
			o.DeliveredAt = deliveredAt
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
