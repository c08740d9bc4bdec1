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

// Package adapters 定义证据源适配器契约。适配器只负责取数并装入
// 统一信封；超时、关键级别与失败处置全部由检索编排器执行。
package adapters

import (
	"context"

	"support-platform/internal/evidence"
	"support-platform/internal/pipeline/common"
)

// Source 证据源适配器接口
type Source interface {
	// Name 工具名，形如 records.lookup
	Name() string
	// Contextual 根据案件上下文计算调用期关键级别；
	// 与声明级别经 evidence.Effective 合成，只升不降
	Contextual(c *common.Case, intent *common.Intent) evidence.Criticality
	// Retrieve 执行一次取数并返回信封。查无数据返回零置信度
	// 带缺口的成功信封；只有真正的调用故障才返回 error
	Retrieve(ctx context.Context, c *common.Case, intent *common.Intent) (*evidence.Envelope, error)
}
