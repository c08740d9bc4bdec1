// Copyright 2026 fanjia1024
// Environment variable based secret store

package secrets

import (
	"context"
	"os"

	"support-platform/pkg/errors"
)

type envStore struct{}

// NewEnvStore 创建环境变量 secret store。key 即环境变量名，
// 与配置中的 ${NAME} 占位一一对应
func NewEnvStore() Store {
	return &envStore{}
}

func (e *envStore) Get(ctx context.Context, key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", errors.Wrapf(errors.ErrNotFound, "environment variable %s not set", key)
	}
	return value, nil
}

func (e *envStore) Set(ctx context.Context, key string, value string) error {
	return os.Setenv(key, value)
}
