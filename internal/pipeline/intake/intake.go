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

package intake

import (
	"context"
	"regexp"
	"strings"

	"support-platform/internal/pipeline/common"
	"support-platform/internal/storage/cache"
	"support-platform/pkg/log"
)

// Request 原始客服请求
type Request struct {
	ConversationID string `json:"conversation_id"`
	Persona        string `json:"persona"`
	Channel        string `json:"channel"`
	Text           string `json:"text"`
	OrderID        string `json:"order_id,omitempty"`
	CustomerID     string `json:"customer_id,omitempty"`
	Locale         string `json:"locale,omitempty"`
}

// continuity 会话延续缓存内容：上一轮解析出的实体
type continuity struct {
	OrderID    string `json:"order_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	ZoneID     string `json:"zone_id,omitempty"`
}

var (
	orderIDPattern = regexp.MustCompile(`(?i)\b(?:ord|order)[-#\s]?(\d{4,})\b`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// Stage 入案阶段：归一化文本、抽取实体、读取会话延续缓存
type Stage struct {
	cache  cache.Store
	logger *log.Logger
}

// NewStage 创建入案阶段。cache 可为 nil（无会话延续）
func NewStage(cacheStore cache.Store, logger *log.Logger) *Stage {
	return &Stage{cache: cacheStore, logger: logger}
}

func continuityKey(conversationID string) string {
	return "conv:" + conversationID
}

// Run 执行入案。归一化与实体抽取是确定性的；置信度反映实体来源：
// 显式入参 1.0，文本抽取 0.9，缓存延续 0.85，无实体 0.7
func (s *Stage) Run(ctx context.Context, req *Request) (*common.Case, error) {
	normalized := strings.TrimSpace(req.Text)
	normalized = spacePattern.ReplaceAllString(normalized, " ")

	c := &common.Case{
		ConversationID: req.ConversationID,
		Persona:        req.Persona,
		Channel:        req.Channel,
		RawText:        req.Text,
		Normalized:     normalized,
		OrderID:        req.OrderID,
		CustomerID:     req.CustomerID,
		Locale:         req.Locale,
		Confidence:     1.0,
	}
	if c.Persona == "" {
		c.Persona = "customer"
	}
	if c.Channel == "" {
		c.Channel = "chat"
	}

	if c.OrderID == "" {
		if m := orderIDPattern.FindStringSubmatch(normalized); m != nil {
			c.OrderID = m[1]
			c.Confidence = 0.9
		}
	}

	// 同一会话上一轮解析出的实体可以延续，置信度略降
	if s.cache != nil && req.ConversationID != "" && (c.OrderID == "" || c.CustomerID == "") {
		var prev continuity
		if err := s.cache.Get(ctx, continuityKey(req.ConversationID), &prev); err == nil {
			if c.OrderID == "" && prev.OrderID != "" {
				c.OrderID = prev.OrderID
				c.Confidence = 0.85
			}
			if c.CustomerID == "" && prev.CustomerID != "" {
				c.CustomerID = prev.CustomerID
			}
			if c.ZoneID == "" && prev.ZoneID != "" {
				c.ZoneID = prev.ZoneID
			}
		}
	}

	if c.OrderID == "" && c.CustomerID == "" {
		c.Confidence = 0.7
	}
	return c, nil
}

// SaveContinuity 写回会话延续缓存，失败只记日志
func (s *Stage) SaveContinuity(ctx context.Context, c *common.Case, ttl string) {
	if s.cache == nil || c == nil || c.ConversationID == "" {
		return
	}
	d := common.ParseDuration(ttl, 0)
	err := s.cache.Set(ctx, continuityKey(c.ConversationID), &continuity{
		OrderID:    c.OrderID,
		CustomerID: c.CustomerID,
		ZoneID:     c.ZoneID,
	}, d)
	if err != nil && s.logger != nil {
		s.logger.Warn("continuity cache write failed", "conversation_id", c.ConversationID, "error", err)
	}
}
