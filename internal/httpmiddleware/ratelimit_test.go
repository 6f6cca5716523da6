package httpmiddleware

import "testing"

func TestAllowExhaustsBucket(t *testing.T) {
	l := NewSimpleTokenBucket(3, 3)
	for i := 0; i < 3; i++ {
		if !l.Allow("device-1") {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if l.Allow("device-1") {
		t.Fatal("fourth request should be limited")
	}
}

func TestAllowIsPerKey(t *testing.T) {
	l := NewSimpleTokenBucket(1, 1)
	if !l.Allow("device-1") {
		t.Fatal("first key should pass")
	}
	if !l.Allow("device-2") {
		t.Fatal("second key has its own bucket")
	}
	if l.Allow("device-1") {
		t.Fatal("first key should now be limited")
	}
}
