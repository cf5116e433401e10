// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package module

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheSize is the number of inspected modules kept by [CachingInspector].
const DefaultCacheSize = 128

var _ Inspector = &CachingInspector{}

// CachingInspector memoizes successful inspections by module reference.
// The same module is typically inspected once on upload and again when it is
// derived from chain.
type CachingInspector struct {
	inner Inspector
	cache *lru.Cache
}

func NewCachingInspector(inner Inspector, size int) (*CachingInspector, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachingInspector{inner: inner, cache: cache}, nil
}

func (c *CachingInspector) Inspect(ctx context.Context, source []byte) (*Info, error) {
	ref := RefOf(source)
	if v, ok := c.cache.Get(ref); ok {
		return copyInfo(v.(*Info)), nil
	}
	info, err := c.inner.Inspect(ctx, source)
	if err != nil {
		return nil, err
	}
	c.cache.Add(ref, copyInfo(info))
	return info, nil
}

// Len returns the number of cached entries.
func (c *CachingInspector) Len() int { return c.cache.Len() }

func copyInfo(info *Info) *Info {
	cp := *info
	cp.ContractNames = make([]string, len(info.ContractNames))
	copy(cp.ContractNames, info.ContractNames)
	cp.ReceiveNames = append([]string(nil), info.ReceiveNames...)
	return &cp
}
