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
	"sync"
	"time"

	"support-platform/internal/model/llm"
	"support-platform/pkg/log"
	"support-platform/pkg/metrics"
)

const (
	writeTimeout = 10 * time.Second
	queueCap     = 256
)

// Writer 异步记忆写入器。写入排入有界队列，由单一 goroutine 顺序消费；
// 队列满时丢弃并计数，失败只记日志与指标，从不影响响应路径。
type Writer struct {
	store          Store
	client         llm.Client
	summarizeEvery int
	logger         *log.Logger

	queue chan *Entry
	wg    sync.WaitGroup
}

// NewWriter 创建异步写入器。summarizeEvery <= 0 时关闭摘要压缩。
// client 为 nil 时摘要同样关闭。
func NewWriter(store Store, client llm.Client, summarizeEvery int, logger *log.Logger) *Writer {
	w := &Writer{
		store:          store,
		client:         client,
		summarizeEvery: summarizeEvery,
		logger:         logger,
	}
	if store != nil {
		w.queue = make(chan *Entry, queueCap)
		go w.drain()
	}
	return w
}

// Append 异步追加一条记忆，立即返回；队列满时丢弃
func (w *Writer) Append(entry *Entry) {
	if entry == nil || w.store == nil {
		return
	}
	w.wg.Add(1)
	select {
	case w.queue <- entry:
	default:
		w.wg.Done()
		metrics.MemoryWriteFailTotal.Inc()
		w.logger.Warn("memory queue full, entry dropped", "kind", entry.Kind, "customer_id", entry.CustomerID)
	}
}

// drain 单消费者顺序写入，保证同一客户的计数与摘要触发确定
func (w *Writer) drain() {
	for entry := range w.queue {
		w.write(entry)
		w.wg.Done()
	}
}

func (w *Writer) write(entry *Entry) {
	defer func() {
		if r := recover(); r != nil {
			metrics.MemoryWriteFailTotal.Inc()
			w.logger.Error("memory write panic", "kind", entry.Kind, "recover", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := w.store.Append(ctx, entry); err != nil {
		metrics.MemoryWriteFailTotal.Inc()
		w.logger.Error("memory write failed", "kind", entry.Kind, "customer_id", entry.CustomerID, "error", err)
		return
	}
	if entry.Kind == KindEpisodic {
		w.maybeSummarize(ctx, entry.CustomerID)
	}
}

// maybeSummarize 每累计 summarizeEvery 条 episodic 记忆，
// 用快速模型压缩为一条 semantic 摘要
func (w *Writer) maybeSummarize(ctx context.Context, customerID string) {
	if w.summarizeEvery <= 0 || w.client == nil || customerID == "" {
		return
	}
	n, err := w.store.CountByCustomer(ctx, customerID, KindEpisodic)
	if err != nil || n == 0 || n%w.summarizeEvery != 0 {
		return
	}
	entries, err := w.store.ListByCustomer(ctx, customerID, []Kind{KindEpisodic}, w.summarizeEvery)
	if err != nil || len(entries) == 0 {
		return
	}

	prompt := "以下是同一客户最近的客服工单摘要，请压缩为一段不超过 200 字的客户画像（偏好、常见问题、处理结果）。只输出画像文本。\n\n"
	for _, e := range entries {
		prompt += "- " + e.Summary + "\n"
	}
	summary, err := w.client.GenerateWithContext(ctx, prompt, llm.GenerateOptions{Temperature: 0.2, MaxTokens: 400})
	if err != nil {
		w.logger.Warn("memory summarize failed", "customer_id", customerID, "error", err)
		return
	}
	if err := w.store.Append(ctx, &Entry{
		Kind:       KindSemantic,
		CustomerID: customerID,
		Summary:    summary,
		Payload:    map[string]any{"compressed_from": len(entries)},
	}); err != nil {
		metrics.MemoryWriteFailTotal.Inc()
		w.logger.Error("memory summary write failed", "customer_id", customerID, "error", err)
	}
}

// Flush 等待队列中与在途的写入全部结束（测试与优雅停机用）
func (w *Writer) Flush() {
	w.wg.Wait()
}
