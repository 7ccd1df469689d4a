package authorities

import "testing"

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache, err := NewCache(2)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	a := AuthoritiesList{BlockHash: BlockHash{0x01}}
	b := AuthoritiesList{BlockHash: BlockHash{0x02}}
	c := AuthoritiesList{BlockHash: BlockHash{0x03}}

	cache.Put(a)
	cache.Put(b)
	cache.Put(c) // evicts a, the least recently used

	if _, ok := cache.Get(a.BlockHash); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := cache.Get(b.BlockHash); !ok {
		t.Error("expected b to remain cached")
	}
	if _, ok := cache.Get(c.BlockHash); !ok {
		t.Error("expected c to remain cached")
	}
}

func TestCacheDefaultCapacity(t *testing.T) {
	cache, err := NewCache(0)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", cache.Len())
	}

	for i := 0; i <= DefaultCacheCapacity; i++ {
		cache.Put(AuthoritiesList{BlockHash: BlockHash{byte(i), byte(i >> 8)}})
	}
	if cache.Len() != DefaultCacheCapacity {
		t.Errorf("expected %d entries after %d puts, got %d", DefaultCacheCapacity, DefaultCacheCapacity+1, cache.Len())
	}
}
