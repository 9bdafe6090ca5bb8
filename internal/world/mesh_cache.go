package world

import (
	"fmt"
	"sync"
)

// MeshCache хранит по одному мешу на каждую маску граней.
// Меш для маски синтезируется не более одного раза за время жизни кеша,
// после чего разделяется всеми вокселями с этой маской.
type MeshCache struct {
	mu      sync.RWMutex
	entries [MaskCount]*Mesh

	synthesize func(FaceMask) *Mesh
	observer   CacheObserver
}

// CacheObserver получает события попаданий и промахов кеша
type CacheObserver interface {
	CacheHit(mask FaceMask)
	CacheMiss(mask FaceMask)
}

// NewMeshCache создаёт пустой кеш поверх синтезатора
func NewMeshCache(s Synthesizer) *MeshCache {
	return &MeshCache{synthesize: s.Synthesize}
}

// SetObserver подключает наблюдателя (метрики). nil отключает.
func (mc *MeshCache) SetObserver(o CacheObserver) {
	mc.mu.Lock()
	mc.observer = o
	mc.mu.Unlock()
}

// GetOrCreate возвращает меш для маски, синтезируя его при первом обращении.
// Повторные вызовы с той же маской возвращают тот же указатель.
func (mc *MeshCache) GetOrCreate(mask FaceMask) *Mesh {
	if !mask.Valid() {
		panic(fmt.Errorf("%w: %d", ErrInvalidMask, mask))
	}

	mc.mu.RLock()
	m := mc.entries[mask]
	obs := mc.observer
	mc.mu.RUnlock()
	if m != nil {
		if obs != nil {
			obs.CacheHit(mask)
		}
		return m
	}

	mc.mu.Lock()
	// Повторная проверка: другая горутина могла успеть создать меш
	if m = mc.entries[mask]; m != nil {
		obs = mc.observer
		mc.mu.Unlock()
		if obs != nil {
			obs.CacheHit(mask)
		}
		return m
	}
	mc.entries[mask] = mc.synthesize(mask)
	m = mc.entries[mask]
	obs = mc.observer
	mc.mu.Unlock()

	if m == nil {
		panic(fmt.Sprintf("mesh cache: no entry for mask %d after synthesis", mask))
	}
	if obs != nil {
		obs.CacheMiss(mask)
	}
	return m
}

// Lookup возвращает меш без синтеза
func (mc *MeshCache) Lookup(mask FaceMask) (*Mesh, bool) {
	if !mask.Valid() {
		return nil, false
	}
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	m := mc.entries[mask]
	return m, m != nil
}

// Len возвращает количество созданных мешей
func (mc *MeshCache) Len() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	n := 0
	for _, m := range mc.entries {
		if m != nil {
			n++
		}
	}
	return n
}

// Entries возвращает созданные меши в порядке возрастания маски
func (mc *MeshCache) Entries() []*Mesh {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	out := make([]*Mesh, 0, MaskCount)
	for _, m := range mc.entries {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
