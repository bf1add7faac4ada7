package db

import (
	"context"
	"testing"
)

func TestNewPool_InvalidURL(t *testing.T) {
	_, err := NewPool(context.Background(), "://not-a-url", 10, 2)
	if err == nil {
		t.Fatal("expected error for malformed database URL")
	}
}

func TestNewPool_MinConnsAboveMax(t *testing.T) {
	_, err := NewPool(context.Background(), "postgres://localhost:5432/clinic", 2, 10)
	if err == nil {
		t.Fatal("expected error when min conns exceeds max conns")
	}
}
