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
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ExtractJSON 从模型回复中截取首个 JSON 对象；模型常在 JSON 前后附带说明文字
func ExtractJSON(reply string) (string, bool) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return reply[start : end+1], true
}

// SchemaError 结构化输出解析失败；调用方据此走阶段安全回退
type SchemaError struct {
	Reply string
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("structured output parse failed: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// GenerateObject 调用模型并将回复解析为 T。解析失败返回 *SchemaError，
// 不重试；每个阶段自带确定性回退值
func GenerateObject[T any](ctx context.Context, client Client, prompt string, options GenerateOptions) (*T, error) {
	if client == nil {
		return nil, fmt.Errorf("no llm client configured")
	}
	reply, err := client.GenerateWithContext(ctx, prompt, options)
	if err != nil {
		return nil, err
	}
	raw, ok := ExtractJSON(reply)
	if !ok {
		return nil, &SchemaError{Reply: reply, Err: fmt.Errorf("no JSON object in reply")}
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &SchemaError{Reply: reply, Err: err}
	}
	return &out, nil
}

// IsSchemaError 判断错误是否结构化解析失败
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
