package cache

import "testing"

func TestLRU_Evicts(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	_, _ = c.Get("a")
	c.Put("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a=%v ok=%v", v, ok)
	}
	if c.Len() != 2 {
		t.Fatalf("len=%d", c.Len())
	}
}

func TestLRU_RemoveAndNil(t *testing.T) {
	c := NewLRU[string, int](4)
	c.Put("a", 1)
	c.Remove("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a removed")
	}

	var nilCache *LRU[string, int]
	nilCache.Put("x", 1)
	if _, ok := nilCache.Get("x"); ok {
		t.Fatal("nil cache must miss")
	}
}
