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

package llm

import (
	"context"
	"testing"
)

func TestGetStatsPerProvider(t *testing.T) {
	rl := NewLLMRateLimiter(map[string]LLMLimitConfig{
		"openai": {TokensPerMinute: 60000, RequestsPerMinute: 600, MaxConcurrent: 10},
	}, nil)

	if err := rl.Wait(context.Background(), "openai", 100); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	defer rl.Release("openai")

	stats := rl.GetStats("openai")
	if stats == nil {
		t.Fatal("GetStats(openai) = nil")
	}
	if stats["tokens_used_minute"].(int) != 100 {
		t.Errorf("tokens_used_minute = %v", stats["tokens_used_minute"])
	}
	if rl.GetStats("missing") != nil {
		t.Error("未知 provider 应返回 nil")
	}
}

func TestStatsAggregatesAllProviders(t *testing.T) {
	rl := NewLLMRateLimiter(map[string]LLMLimitConfig{
		"openai": {TokensPerMinute: 60000, RequestsPerMinute: 600, MaxConcurrent: 10},
		"qwen":   {TokensPerMinute: 30000, RequestsPerMinute: 300, MaxConcurrent: 5},
	}, nil)

	all := rl.Stats()
	if len(all) != 2 {
		t.Fatalf("Stats providers = %d, want 2", len(all))
	}
	for _, p := range []string{"openai", "qwen"} {
		if all[p] == nil {
			t.Errorf("缺少 provider %s", p)
		}
	}

	// 按需创建的 provider 也要出现在汇总里
	if err := rl.Wait(context.Background(), "deepseek", 1); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	rl.Release("deepseek")
	if rl.Stats()["deepseek"] == nil {
		t.Error("默认配置创建的 provider 应出现在汇总中")
	}
}
