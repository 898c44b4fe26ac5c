package terrain

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/Faultbox/terraglobe/internal/lifecycle"
)

// DefaultMeshTTL bounds how long an unused generated mesh stays cached.
const DefaultMeshTTL = 30 * time.Second

// Generator produces tile meshes, memoizing results so tiles rebuilt
// with identical parameters (same grid cell, same projection state, same
// build settings) share one buffer instead of regenerating it.
type Generator struct {
	pool  *lifecycle.Pool[*MeshData]
	cache *ttlcache.Cache[uint64, *MeshData]
}

// NewGenerator creates a generator with a mesh pool and a TTL-bounded
// memo cache. The cache's expiration loop starts immediately and runs
// until Stop.
func NewGenerator(ttl time.Duration) *Generator {
	if ttl <= 0 {
		ttl = DefaultMeshTTL
	}
	// Evicted meshes are left to the garbage collector rather than
	// recycled: a tile may still be displaying one.
	g := &Generator{
		pool: NewMeshPool(),
		cache: ttlcache.New[uint64, *MeshData](
			ttlcache.WithTTL[uint64, *MeshData](ttl),
		),
	}
	go g.cache.Start()
	return g
}

// Stop halts the expiration loop started by NewGenerator.
func (g *Generator) Stop() { g.cache.Stop() }

// Pool exposes the mesh buffer pool for builds driven outside the memo.
func (g *Generator) Pool() *lifecycle.Pool[*MeshData] { return g.pool }

// Generate builds the mesh for the parameters, serving a cached buffer
// when an identical build already ran. Cached meshes are shared; callers
// must treat them as immutable.
func (g *Generator) Generate(ctx context.Context, p Params, sampler ElevationSampler) (*MeshData, error) {
	key := p.buildHash()
	if item := g.cache.Get(key); item != nil {
		return item.Value(), nil
	}

	out := g.pool.Get()
	b := NewBuilder(p, sampler, out)
	if err := b.Run(ctx); err != nil {
		g.pool.Put(out)
		return nil, err
	}
	out.hashHint = key
	g.cache.Set(key, out, ttlcache.DefaultTTL)
	return out, nil
}

// lookup serves a memoized mesh for the parameters, nil on miss.
func (g *Generator) lookup(p Params) *MeshData {
	if item := g.cache.Get(p.buildHash()); item != nil {
		return item.Value()
	}
	return nil
}

// store memoizes a completed build.
func (g *Generator) store(p Params, m *MeshData) {
	m.hashHint = p.buildHash()
	g.cache.Set(m.hashHint, m, ttlcache.DefaultTTL)
}

// Release returns a mesh that bypassed the memo cache to the pool.
// Cached meshes are reclaimed by eviction instead.
func (g *Generator) Release(m *MeshData) {
	if m == nil {
		return
	}
	if item := g.cache.Get(m.hashHint, ttlcache.WithDisableTouchOnHit[uint64, *MeshData]()); item != nil && item.Value() == m {
		return
	}
	g.pool.Put(m)
}
