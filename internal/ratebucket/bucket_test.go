package ratebucket

import (
	"testing"
	"time"
)

func TestBucketTripsPastRate(t *testing.T) {
	bucket := New(10, 8*time.Second)
	now := time.Now()

	for i := 0; i < 10; i++ {
		if bucket.Record("g1", now.Add(time.Duration(i)*100*time.Millisecond)) {
			t.Fatalf("tripped at event %d", i+1)
		}
	}
	if !bucket.Record("g1", now.Add(2*time.Second)) {
		t.Fatalf("expected trip on 11th event")
	}
}

func TestBucketResetsAfterWindow(t *testing.T) {
	bucket := New(2, 5*time.Second)
	now := time.Now()

	bucket.Record("g1", now)
	bucket.Record("g1", now.Add(time.Second))
	if !bucket.Record("g1", now.Add(2*time.Second)) {
		t.Fatalf("expected trip")
	}
	if bucket.Record("g1", now.Add(6*time.Second)) {
		t.Fatalf("unexpected trip after window elapsed")
	}
	if count := bucket.Count("g1", now.Add(6500*time.Millisecond)); count != 1 {
		t.Fatalf("expected count 1 in fresh window, got %d", count)
	}
}

func TestBucketKeysIndependent(t *testing.T) {
	bucket := New(1, time.Minute)
	now := time.Now()

	bucket.Record("a", now)
	if bucket.Record("b", now) {
		t.Fatalf("keys should not share state")
	}
	if !bucket.Record("a", now.Add(time.Second)) {
		t.Fatalf("expected trip for key a")
	}
}
