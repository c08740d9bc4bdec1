// Copyright 2026 fanjia1024

package secrets

import (
	"context"
	"testing"

	"support-platform/pkg/errors"
)

func TestMemoryStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Get(ctx, "OPENAI_API_KEY"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing key: got %v, want ErrNotFound", err)
	}
	if err := s.Set(ctx, "OPENAI_API_KEY", "sk-test"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "OPENAI_API_KEY")
	if err != nil || got != "sk-test" {
		t.Errorf("Get = %q, %v", got, err)
	}
}

func TestEnvStoreGet(t *testing.T) {
	ctx := context.Background()
	s := NewEnvStore()
	t.Setenv("SUPPORT_TEST_SECRET", "v1")

	got, err := s.Get(ctx, "SUPPORT_TEST_SECRET")
	if err != nil || got != "v1" {
		t.Errorf("Get = %q, %v", got, err)
	}
	if _, err := s.Get(ctx, "SUPPORT_TEST_SECRET_MISSING"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing env: got %v, want ErrNotFound", err)
	}
}

func TestNewStoreProviderSelection(t *testing.T) {
	if _, err := NewStore(Config{Provider: "memory"}); err != nil {
		t.Errorf("memory provider: %v", err)
	}
	if _, err := NewStore(Config{Provider: "env"}); err != nil {
		t.Errorf("env provider: %v", err)
	}
}
