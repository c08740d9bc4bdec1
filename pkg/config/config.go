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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构体
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Model      ModelConfig      `mapstructure:"model"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Escalation EscalationConfig `mapstructure:"escalation"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimits RateLimitsConfig `mapstructure:"rate_limits"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port    int        `mapstructure:"port"`
	Host    string     `mapstructure:"host"`
	Timeout string     `mapstructure:"timeout"`
	CORS    CORSConfig `mapstructure:"cors"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// ModelConfig 模型配置
type ModelConfig struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
}

// LLMConfig LLM 模型配置
type LLMConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// EmbeddingConfig Embedding 模型配置
type EmbeddingConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig 模型提供商配置
type ProviderConfig struct {
	APIKey  string               `mapstructure:"api_key"`
	BaseURL string               `mapstructure:"base_url"`
	Models  map[string]ModelInfo `mapstructure:"models"`
}

// ModelInfo 模型信息
type ModelInfo struct {
	Name        string  `mapstructure:"name"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Dimension   int     `mapstructure:"dimension"`
}

// DefaultsConfig 默认模型配置；Fast 用于低风险会话类意图，Full 用于实质性问题
type DefaultsConfig struct {
	Fast      string `mapstructure:"fast"`
	Full      string `mapstructure:"full"`
	Embedding string `mapstructure:"embedding"`
}

// PipelineConfig 决策管线配置（置信度阈值、检索预算、工具声明均为配置而非硬编码）
type PipelineConfig struct {
	Confidence     ConfidenceConfig      `mapstructure:"confidence"`
	Retrieval      RetrievalConfig       `mapstructure:"retrieval"`
	Tools          map[string]ToolConfig `mapstructure:"tools"`
	SummarizeEvery int                   `mapstructure:"summarize_every"` // 每 N 轮触发一次会话摘要；<=0 默认 5
}

// ConfidenceConfig 置信度分段阈值
type ConfidenceConfig struct {
	Floor float64 `mapstructure:"floor"` // 低于此值以“置信不足”话术替换回答；<=0 默认 0.80
	Offer float64 `mapstructure:"offer"` // 低于此值在回答后附加转人工提示；<=0 默认 0.90
}

// RetrievalConfig 检索阶段配置
type RetrievalConfig struct {
	CallBudget  int    `mapstructure:"call_budget"`  // 单个证据源内部子查询上限，<=0 默认 3
	ToolTimeout string `mapstructure:"tool_timeout"` // 单次工具调用超时，如 "8s"，空则默认 8s
}

// ToolConfig 单个证据工具的静态声明
type ToolConfig struct {
	Criticality string `mapstructure:"criticality"` // non_critical | decision_critical | safety_critical
	Timeout     string `mapstructure:"timeout"`     // 覆盖 retrieval.tool_timeout，可空
}

// StorageConfig 存储配置
type StorageConfig struct {
	Records RecordsConfig `mapstructure:"records"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Vector  VectorConfig  `mapstructure:"vector"`
	Memory  MemoryConfig  `mapstructure:"memory"`
}

// RecordsConfig 运营记录存储配置（订单/客户/骑手）
type RecordsConfig struct {
	Type     string `mapstructure:"type"` // memory | postgres
	DSN      string `mapstructure:"dsn"`
	PoolSize int    `mapstructure:"pool_size"`
}

// CacheConfig 会话延续缓存配置
type CacheConfig struct {
	Type     string `mapstructure:"type"` // memory | redis
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	TTL      string `mapstructure:"ttl"` // 会话缓存保留时长，如 "24h"
}

// VectorConfig 政策文档检索后端配置（memory 为内置；redis 使用 eino-ext retriever）
type VectorConfig struct {
	Type       string `mapstructure:"type"`
	Addr       string `mapstructure:"addr"`
	DB         string `mapstructure:"db"`
	Collection string `mapstructure:"collection"`
	Password   string `mapstructure:"password"`
}

// MemoryConfig 记忆存储配置（episodic/semantic/procedural 共用）
type MemoryConfig struct {
	Type string `mapstructure:"type"` // memory | postgres
	DSN  string `mapstructure:"dsn"`
}

// EscalationConfig 人工升级接收端配置
type EscalationConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Timeout  string `mapstructure:"timeout"` // 如 "5s"
}

// SecretsConfig Secret 解析配置（api_key 形如 ${ENV} 时经 secrets.Store 解析）
type SecretsConfig struct {
	Provider string            `mapstructure:"provider"` // env | vault | memory
	Config   map[string]string `mapstructure:"config"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// RateLimitsConfig 限流配置（LLM Provider 维度）
type RateLimitsConfig struct {
	LLM map[string]LLMRateLimitConfig `mapstructure:"llm"`
}

// LLMRateLimitConfig 单个 LLM Provider 的限流配置
type LLMRateLimitConfig struct {
	TokensPerMinute   int     `mapstructure:"tokens_per_minute"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(&config)
	return &config, nil
}

// replaceEnvVars 替换配置中的 ${ENV} 形式 API Key（secrets.provider 为 env 之外的后端在 bootstrap 解析）
func replaceEnvVars(config *Config) {
	expand := func(providers map[string]ProviderConfig) {
		for name, pc := range providers {
			if strings.HasPrefix(pc.APIKey, "$") {
				envVar := strings.TrimPrefix(strings.TrimSuffix(pc.APIKey, "}"), "${")
				if val := os.Getenv(envVar); val != "" {
					pc.APIKey = val
					providers[name] = pc
				}
			}
		}
	}
	expand(config.Model.LLM.Providers)
	expand(config.Model.Embedding.Providers)
}

// LoadAPIConfig 加载 API 配置（仅 configs/api.yaml）
func LoadAPIConfig() (*Config, error) {
	return LoadConfig("configs/api.yaml")
}

// LoadAPIConfigWithModel 加载 API 配置并合并 model 配置；model 路径解析为与 api 配置同目录，避免 cwd 导致 model.yaml 未加载
func LoadAPIConfigWithModel() (*Config, error) {
	cfg, err := LoadConfig("configs/api.yaml")
	if err != nil {
		return nil, err
	}
	modelPath := "configs/model.yaml"
	if absAPI, errAbs := filepath.Abs("configs/api.yaml"); errAbs == nil {
		modelPath = filepath.Join(filepath.Dir(absAPI), "model.yaml")
	}
	modelCfg, err := LoadConfig(modelPath)
	if err == nil {
		cfg.Model = modelCfg.Model
	}
	return cfg, nil
}
