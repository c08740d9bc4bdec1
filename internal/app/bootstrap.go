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

package app

import (
	"context"
	"fmt"
	"time"

	adapterpolicy "support-platform/internal/adapters/policy"
	adapterrecall "support-platform/internal/adapters/recall"
	adapterrecords "support-platform/internal/adapters/records"
	"support-platform/internal/einoext"
	"support-platform/internal/escalation"
	"support-platform/internal/evidence"
	"support-platform/internal/memory"
	"support-platform/internal/model/embedding"
	"support-platform/internal/model/llm"
	"support-platform/internal/pipeline"
	"support-platform/internal/pipeline/common"
	"support-platform/internal/pipeline/dispatch"
	"support-platform/internal/pipeline/intake"
	"support-platform/internal/pipeline/intent"
	"support-platform/internal/pipeline/plan"
	"support-platform/internal/pipeline/reason"
	"support-platform/internal/pipeline/retrieve"
	"support-platform/internal/pipeline/route"
	"support-platform/internal/storage/cache"
	"support-platform/internal/storage/records"
	"support-platform/internal/storage/vector"
	"support-platform/pkg/config"
	"support-platform/pkg/log"
	"support-platform/pkg/secrets"
)

const (
	defaultFloor          = 0.80
	defaultOffer          = 0.90
	defaultSummarizeEvery = 5
	defaultCallBudget     = 3
)

// Bootstrap 统一初始化：存储、模型、管线，供 api 复用，
// 避免在 cmd 内写业务装配
type Bootstrap struct {
	Config       *config.Config
	Logger       *log.Logger
	Pipeline     *pipeline.Pipeline
	RecordsStore records.Store
	CacheStore   cache.Store
	MemoryStore  memory.Store
	MemoryWriter *memory.Writer
	RateLimiter  *llm.LLMRateLimiter

	closers []func() error
}

// NewBootstrap 根据配置装配全部依赖
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志failed: %w", err)
	}

	b := &Bootstrap{Config: cfg, Logger: logger}

	secretStore, err := secrets.NewStore(secrets.Config{
		Provider: cfg.Secrets.Provider,
		Config:   cfg.Secrets.Config,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 secrets failed: %w", err)
	}

	// 存储
	b.RecordsStore, err = records.NewStore(ctx, cfg.Storage.Records)
	if err != nil {
		return nil, fmt.Errorf("初始化运营记录存储failed: %w", err)
	}
	b.closers = append(b.closers, b.RecordsStore.Close)

	b.CacheStore, err = cache.NewCache(ctx, cfg.Storage.Cache)
	if err != nil {
		return nil, fmt.Errorf("初始化缓存failed: %w", err)
	}
	b.closers = append(b.closers, b.CacheStore.Close)

	b.MemoryStore, err = memory.NewStore(ctx, cfg.Storage.Memory)
	if err != nil {
		return nil, fmt.Errorf("初始化记忆存储failed: %w", err)
	}
	b.closers = append(b.closers, b.MemoryStore.Close)

	// type=memory 或空时创建内置 vector.Store；type=redis 由 einoext 工厂直连
	var vecStore vector.Store
	if t := cfg.Storage.Vector.Type; t == "" || t == "memory" {
		vecStore, err = vector.NewStore(cfg.Storage.Vector)
		if err != nil {
			return nil, fmt.Errorf("初始化向量存储failed: %w", err)
		}
	}

	// 模型
	b.RateLimiter = newRateLimiter(cfg.RateLimits)
	fastClient, err := b.newLLM(ctx, secretStore, cfg.Model.Defaults.Fast)
	if err != nil {
		return nil, fmt.Errorf("初始化快速模型failed: %w", err)
	}
	fullClient, err := b.newLLM(ctx, secretStore, cfg.Model.Defaults.Full)
	if err != nil {
		return nil, fmt.Errorf("初始化完整模型failed: %w", err)
	}
	embedder, err := newEmbedder(ctx, secretStore, cfg.Model, cfg.Model.Defaults.Embedding)
	if err != nil {
		return nil, fmt.Errorf("初始化 embedding failed: %w", err)
	}
	einoEmbedder := embedding.NewEinoAdapter(embedder)

	if vecStore != nil {
		collection := cfg.Storage.Vector.Collection
		if collection == "" {
			collection = "support_policies"
		}
		if err := vector.EnsureIndex(ctx, vecStore, collection, embedder.Dimension(), "cosine"); err != nil {
			logger.Info("创建政策向量索引失败（首次写入时可能再创建）", "error", err)
		}
	}

	retriever, err := einoext.NewRetriever(ctx, cfg.Storage.Vector, vecStore, einoEmbedder)
	if err != nil {
		return nil, fmt.Errorf("初始化政策检索failed: %w", err)
	}

	// 证据工具策略
	toolTimeout := common.ParseDuration(cfg.Pipeline.Retrieval.ToolTimeout, 8*time.Second)
	policyTable := evidence.NewPolicy(toolSpecs(cfg.Pipeline.Tools, toolTimeout), toolTimeout)

	callBudget := cfg.Pipeline.Retrieval.CallBudget
	if callBudget <= 0 {
		callBudget = defaultCallBudget
	}
	recordsAdapter := adapterrecords.NewAdapter(b.RecordsStore, callBudget)
	policyAdapter := adapterpolicy.NewAdapter(retriever, einoEmbedder, 0)
	recallAdapter := adapterrecall.NewAdapter(b.MemoryStore, 0)

	// 升级接收端
	var sink escalation.Sink
	if cfg.Escalation.Endpoint != "" {
		sink = escalation.NewHTTPSink(cfg.Escalation.Endpoint,
			common.ParseDuration(cfg.Escalation.Timeout, 5*time.Second))
	} else {
		sink = escalation.NewMemorySink()
	}

	// 记忆写入
	summarizeEvery := cfg.Pipeline.SummarizeEvery
	if summarizeEvery <= 0 {
		summarizeEvery = defaultSummarizeEvery
	}
	b.MemoryWriter = memory.NewWriter(b.MemoryStore, fastClient, summarizeEvery, logger)

	floor := cfg.Pipeline.Confidence.Floor
	if floor <= 0 {
		floor = defaultFloor
	}
	offer := cfg.Pipeline.Confidence.Offer
	if offer <= 0 {
		offer = defaultOffer
	}

	b.Pipeline = pipeline.New(pipeline.Config{
		Intake:       intake.NewStage(b.CacheStore, logger),
		Classifier:   intent.NewClassifier(fastClient, logger),
		Planner:      plan.NewLLMPlanner(fastClient, logger),
		Orchestrator: retrieve.NewOrchestrator(policyTable, logger, recordsAdapter, policyAdapter, recallAdapter),
		Fuser:        reason.NewFuser(fastClient, fullClient, logger),
		Authority:    route.NewAuthority(fullClient, logger),
		Dispatcher: dispatch.NewDispatcher(sink, b.MemoryWriter, dispatch.Bands{
			Floor: floor,
			Offer: offer,
		}, logger),
		Floor:         floor,
		ContinuityTTL: cfg.Storage.Cache.TTL,
		Logger:        logger,
	})
	return b, nil
}

// Close 释放全部存储连接；先等在途记忆写入结束
func (b *Bootstrap) Close() error {
	if b.MemoryWriter != nil {
		b.MemoryWriter.Flush()
	}
	var firstErr error
	for _, c := range b.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// newLLM 按 defaults 的 "provider/alias" 引用创建带限流的 LLM 客户端
func (b *Bootstrap) newLLM(ctx context.Context, store secrets.Store, ref string) (llm.Client, error) {
	provider, pc, info, err := resolveModel(b.Config.Model.LLM.Providers, ref)
	if err != nil {
		return nil, err
	}
	apiKey, err := resolveAPIKey(ctx, store, pc.APIKey)
	if err != nil {
		return nil, err
	}
	inner, err := llm.NewClient(provider, info.Name, apiKey, pc.BaseURL)
	if err != nil {
		return nil, err
	}
	return llm.NewRateLimitedClient(inner, b.RateLimiter), nil
}

func newEmbedder(ctx context.Context, store secrets.Store, mc config.ModelConfig, ref string) (embedding.Embedder, error) {
	provider, pc, info, err := resolveModel(mc.Embedding.Providers, ref)
	if err != nil {
		return nil, err
	}
	apiKey, err := resolveAPIKey(ctx, store, pc.APIKey)
	if err != nil {
		return nil, err
	}
	return embedding.NewEmbedder(provider, info.Name, apiKey, pc.BaseURL, info.Dimension)
}

// resolveModel 解析 "provider/alias" 形式的默认模型引用
func resolveModel(providers map[string]config.ProviderConfig, ref string) (string, config.ProviderConfig, config.ModelInfo, error) {
	for provider, pc := range providers {
		for alias, info := range pc.Models {
			if ref == provider+"/"+alias || ref == alias {
				return provider, pc, info, nil
			}
		}
	}
	return "", config.ProviderConfig{}, config.ModelInfo{}, fmt.Errorf("模型引用 %q 未在配置中声明", ref)
}

// resolveAPIKey 留在配置里的 ${NAME} 占位经 secrets.Store 解析
func resolveAPIKey(ctx context.Context, store secrets.Store, raw string) (string, error) {
	if len(raw) > 3 && raw[0] == '$' && raw[1] == '{' && raw[len(raw)-1] == '}' {
		key := raw[2 : len(raw)-1]
		val, err := store.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("解析 secret %s failed: %w", key, err)
		}
		return val, nil
	}
	return raw, nil
}

func newRateLimiter(cfg config.RateLimitsConfig) *llm.LLMRateLimiter {
	if len(cfg.LLM) == 0 {
		return llm.NewLLMRateLimiter(nil, nil)
	}
	configs := make(map[string]llm.LLMLimitConfig, len(cfg.LLM))
	for provider, c := range cfg.LLM {
		configs[provider] = llm.LLMLimitConfig{
			TokensPerMinute:   c.TokensPerMinute,
			RequestsPerMinute: c.RequestsPerMinute,
			MaxConcurrent:     c.MaxConcurrent,
		}
	}
	return llm.NewLLMRateLimiter(configs, nil)
}

func toolSpecs(tools map[string]config.ToolConfig, defaultTimeout time.Duration) []evidence.ToolSpec {
	specs := make([]evidence.ToolSpec, 0, len(tools))
	for name, tc := range tools {
		specs = append(specs, evidence.ToolSpec{
			Name:           name,
			MinCriticality: evidence.ParseCriticality(tc.Criticality),
			Timeout:        common.ParseDuration(tc.Timeout, defaultTimeout),
		})
	}
	return specs
}
