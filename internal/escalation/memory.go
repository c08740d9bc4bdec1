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

package escalation

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemorySink 内存升级接收端，本地开发与测试用
type MemorySink struct {
	mu      sync.Mutex
	packets []*Packet
}

// NewMemorySink 创建内存升级接收端
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Submit 实现 Sink
func (s *MemorySink) Submit(ctx context.Context, p *Packet) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := "esc-" + uuid.New().String()
	cp := *p
	cp.EscalationID = id
	s.packets = append(s.packets, &cp)
	return id, nil
}

// Packets 返回已提交的交接包快照
func (s *MemorySink) Packets() []*Packet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Packet, len(s.packets))
	copy(out, s.packets)
	return out
}
