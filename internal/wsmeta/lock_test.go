package wsmeta

import (
	"context"
	"testing"
	"time"
)

func TestAcquireExclusiveThenRelease(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	lock, err := AcquireExclusive(ctx, root)
	if err != nil {
		t.Fatalf("AcquireExclusive: %v", err)
	}
	if lock.Holder == "" {
		t.Error("expected non-empty holder id")
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestAcquireSharedAllowsConcurrentReaders(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	first, err := AcquireShared(ctx, root)
	if err != nil {
		t.Fatalf("first AcquireShared: %v", err)
	}
	defer first.Release()

	second, err := AcquireShared(ctx, root)
	if err != nil {
		t.Fatalf("second AcquireShared: %v", err)
	}
	defer second.Release()
}

func TestAcquireExclusiveBlocksSecondExclusive(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	first, err := AcquireExclusive(ctx, root)
	if err != nil {
		t.Fatalf("first AcquireExclusive: %v", err)
	}
	defer first.Release()

	shortCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	if _, err := AcquireExclusive(shortCtx, root); err == nil {
		t.Fatal("expected second exclusive lock attempt to fail while held")
	}
}
