package ratelimit

import (
	"testing"
	"time"
)

func TestAllowRespectsBurstPerKey(t *testing.T) {
	l := New(1, 2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst of 2 should pass")
	}
	if l.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("keys are independent")
	}

	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatal("token should refill after a second")
	}
}

func TestSweepDropsIdleKeys(t *testing.T) {
	l := New(1, 1, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(2 * time.Minute)
	l.mu.Lock()
	l.sweep(now)
	_, ok := l.m["old"]
	l.mu.Unlock()
	if ok {
		t.Fatal("idle key should be swept")
	}
}
