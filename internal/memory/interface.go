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
	"time"
)

// Kind 记忆类型
type Kind string

const (
	// KindEpisodic 历史工单摘要（按客户）
	KindEpisodic Kind = "episodic"
	// KindSemantic 客户长期事实（偏好、常见问题）
	KindSemantic Kind = "semantic"
	// KindProcedural 处置手法使用记录
	KindProcedural Kind = "procedural"
)

// Entry 单条记忆
type Entry struct {
	ID             string         `json:"id"`
	Kind           Kind           `json:"kind"`
	CustomerID     string         `json:"customer_id"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Summary        string         `json:"summary"`
	Payload        map[string]any `json:"payload,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Store 记忆存储接口；追加式，不做更新删除
type Store interface {
	// Append 追加一条记忆
	Append(ctx context.Context, entry *Entry) error
	// ListByCustomer 按客户列出记忆（按时间降序，最多 limit 条；kinds 为空表示全部）
	ListByCustomer(ctx context.Context, customerID string, kinds []Kind, limit int) ([]*Entry, error)
	// CountByCustomer 统计客户某类记忆条数
	CountByCustomer(ctx context.Context, customerID string, kind Kind) (int, error)
	// Close 关闭存储连接
	Close() error
}

func kindMatch(kinds []Kind, k Kind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, kk := range kinds {
		if kk == k {
			return true
		}
	}
	return false
}
