package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiterWaitSpacesSameHost(t *testing.T) {
	// 10 RPS with burst 1: one token every 100ms.
	l := New(Config{DefaultRPS: 10, DefaultBurst: 1})
	ctx := context.Background()

	if err := l.Wait(ctx, "https://en.wikipedia.org/wiki/A"); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := l.Wait(ctx, "https://EN.wikipedia.org/wiki/B"); err != nil {
		t.Fatal(err)
	}
	if dur := time.Since(start); dur < 80*time.Millisecond {
		t.Errorf("expected wait ~100ms, got %v", dur)
	}
	if l.Hosts() != 1 {
		t.Errorf("expected one bucket for the host, got %d", l.Hosts())
	}
}

func TestLimiterDifferentHosts(t *testing.T) {
	l := New(Config{DefaultRPS: 1, DefaultBurst: 1})
	ctx := context.Background()

	if err := l.Wait(ctx, "https://a.example/1"); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := l.Wait(ctx, "https://b.example/1"); err != nil {
		t.Fatal(err)
	}
	if dur := time.Since(start); dur > 50*time.Millisecond {
		t.Errorf("expected no wait for a different host, got %v", dur)
	}
	if l.Hosts() != 2 {
		t.Errorf("expected two buckets, got %d", l.Hosts())
	}
}

func TestLimiterWaitHonorsContext(t *testing.T) {
	l := New(Config{DefaultRPS: 0.1, DefaultBurst: 1})
	if err := l.Wait(context.Background(), "https://slow.example"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	if err := l.Wait(ctx, "https://slow.example"); err == nil {
		t.Fatal("expected the deadline to cut the wait short")
	}
	if dur := time.Since(start); dur > time.Second {
		t.Errorf("wait should give up early, took %v", dur)
	}
}

func TestLimiterUnlimited(t *testing.T) {
	l := New(Config{})
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 20; i++ {
		if err := l.Wait(ctx, "https://fast.example"); err != nil {
			t.Fatal(err)
		}
	}
	if dur := time.Since(start); dur > 50*time.Millisecond {
		t.Errorf("unlimited limiter should not wait, got %v", dur)
	}
}
