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
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPSink HTTP 人工升级接收端客户端
type HTTPSink struct {
	endpoint string
	client   *resty.Client
}

// NewHTTPSink 创建 HTTP 升级客户端
func NewHTTPSink(endpoint string, timeout time.Duration) *HTTPSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(500 * time.Millisecond)
	return &HTTPSink{endpoint: endpoint, client: client}
}

// Submit 实现 Sink：POST 交接包，返回接收端分配的升级 ID
func (s *HTTPSink) Submit(ctx context.Context, p *Packet) (string, error) {
	response, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(p).
		Post(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("提交升级failed: %w", err)
	}
	if response.StatusCode() != http.StatusOK && response.StatusCode() != http.StatusCreated {
		return "", fmt.Errorf("升级接收端返回错误: %s", response.String())
	}
	var result struct {
		EscalationID string `json:"escalation_id"`
	}
	if err := json.Unmarshal(response.Body(), &result); err != nil {
		return "", fmt.Errorf("解析升级响应failed: %w", err)
	}
	if result.EscalationID == "" {
		return "", fmt.Errorf("升级接收端未返回 escalation_id")
	}
	return result.EscalationID, nil
}
