// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resolve

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Memo caches successful resolutions for the lifetime of one materialization,
// so each distinct path is resolved once. Failures are not cached.
type Memo struct {
	next  Resolver
	mu    sync.Mutex
	cache map[string]any
}

// NewMemo wraps next with a per-materialization cache.
func NewMemo(next Resolver) *Memo {
	return &Memo{next: next, cache: make(map[string]any)}
}

func (m *Memo) Resolve(path string) (any, error) {
	m.mu.Lock()
	v, ok := m.cache[path]
	m.mu.Unlock()
	if ok {
		return v, nil
	}

	v, err := m.next.Resolve(path)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cache[path] = v
	m.mu.Unlock()
	return v, nil
}

// Len returns the number of cached paths.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cache)
}

// Cached is a bounded process-level cache shared across materializations,
// for callers that need one shared instance per path.
type Cached struct {
	next  Resolver
	cache *lru.Cache[string, any]
}

// NewCached wraps next with an LRU cache holding at most size paths.
func NewCached(next Resolver, size int) (*Cached, error) {
	cache, err := lru.New[string, any](size)
	if err != nil {
		return nil, fmt.Errorf("create resolution cache: %w", err)
	}
	return &Cached{next: next, cache: cache}, nil
}

func (c *Cached) Resolve(path string) (any, error) {
	if v, ok := c.cache.Get(path); ok {
		return v, nil
	}
	v, err := c.next.Resolve(path)
	if err != nil {
		return nil, err
	}
	c.cache.Add(path, v)
	return v, nil
}

// Purge drops every cached resolution.
func (c *Cached) Purge() {
	c.cache.Purge()
}

var (
	_ Resolver = (*Memo)(nil)
	_ Resolver = (*Cached)(nil)
)
