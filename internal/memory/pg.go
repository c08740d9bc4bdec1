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

package memory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore Postgres 记忆存储实现
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore 创建基于 PostgreSQL 的记忆存储
func NewPgStore(ctx context.Context, dsn string) (*PgStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
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

func (s *PgStore) Append(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return nil
	}
	if entry.ID == "" {
		entry.ID = "mem-" + uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	pl, _ := json.Marshal(entry.Payload)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO support_memory_entries (id, kind, customer_id, conversation_id, summary, payload, created_at)
		 VALUES ($1, $2, $3, NULLIF($4,''), $5, $6, $7)`,
		entry.ID, string(entry.Kind), entry.CustomerID, entry.ConversationID, entry.Summary, pl, entry.CreatedAt)
	return err
}

func (s *PgStore) ListByCustomer(ctx context.Context, customerID string, kinds []Kind, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	kindNames := make([]string, 0, len(kinds))
	for _, k := range kinds {
		kindNames = append(kindNames, string(k))
	}
	where := `WHERE customer_id = $1`
	args := []any{customerID}
	if len(kindNames) > 0 {
		where += ` AND kind = ANY($2) ORDER BY created_at DESC LIMIT $3`
		args = append(args, kindNames, limit)
	} else {
		where += ` ORDER BY created_at DESC LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, customer_id, COALESCE(conversation_id,''), COALESCE(summary,''), COALESCE(payload,'{}'::jsonb), created_at
		 FROM support_memory_entries `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Entry
	for rows.Next() {
		var id, kind, custID, convID, summary string
		var payload []byte
		var createdAt time.Time
		if err := rows.Scan(&id, &kind, &custID, &convID, &summary, &payload, &createdAt); err != nil {
			return nil, err
		}
		e := &Entry{ID: id, Kind: Kind(kind), CustomerID: custID, ConversationID: convID, Summary: summary, CreatedAt: createdAt}
		if len(payload) > 0 {
			_ = json.Unmarshal(payload, &e.Payload)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PgStore) CountByCustomer(ctx context.Context, customerID string, kind Kind) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM support_memory_entries WHERE customer_id = $1 AND kind = $2`,
		customerID, string(kind)).Scan(&n)
	return n, err
}
