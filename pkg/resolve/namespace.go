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
	"log/slog"
	"sync"

	"github.com/kadirpekel/toddleops/pkg/registry"
)

// Loader populates a namespace the first time one of its paths is resolved.
// It may be expensive (building model clients, starting subprocesses).
type Loader func(ns *Namespace) error

// Namespace is a set of named attributes. Attributes are either plain values
// or lazy constructors that run once, on first lookup.
type Namespace struct {
	name  string
	mu    sync.RWMutex
	attrs map[string]*attribute
}

type attribute struct {
	once  sync.Once
	build func() (any, error)
	value any
	err   error
}

func newNamespace(name string) *Namespace {
	return &Namespace{name: name, attrs: make(map[string]*attribute)}
}

// Name returns the namespace's dotted name.
func (n *Namespace) Name() string {
	return n.name
}

// Set stores a value under name, replacing any previous attribute.
func (n *Namespace) Set(name string, value any) {
	a := &attribute{value: value}
	a.once.Do(func() {})
	n.mu.Lock()
	n.attrs[name] = a
	n.mu.Unlock()
}

// Lazy registers a constructor that runs on the first lookup of name.
// Its result, value or error, is kept for later lookups.
func (n *Namespace) Lazy(name string, build func() (any, error)) {
	n.mu.Lock()
	n.attrs[name] = &attribute{build: build}
	n.mu.Unlock()
}

// Get returns the current value of name.
func (n *Namespace) Get(name string) (any, bool, error) {
	n.mu.RLock()
	a, ok := n.attrs[name]
	n.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	a.once.Do(func() {
		a.value, a.err = a.build()
	})
	return a.value, true, a.err
}

// Attributes lists the attribute names currently defined.
func (n *Namespace) Attributes() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	names := make([]string, 0, len(n.attrs))
	for name := range n.attrs {
		names = append(names, name)
	}
	return names
}

type entry struct {
	loader Loader
	once   sync.Once
	ns     *Namespace
	err    error
}

// Namespaces is the default Resolver: a registry of lazily loaded namespaces.
// It is safe for concurrent use; every loader runs at most once.
type Namespaces struct {
	entries *registry.BaseRegistry[*entry]
	logger  *slog.Logger
}

// NewNamespaces creates an empty namespace registry.
func NewNamespaces() *Namespaces {
	return &Namespaces{
		entries: registry.NewBaseRegistry[*entry](),
		logger:  slog.Default(),
	}
}

// Register adds a namespace. Names must be unique.
func (n *Namespaces) Register(name string, loader Loader) error {
	if loader == nil {
		return fmt.Errorf("namespace %q: loader is required", name)
	}
	if err := n.entries.Register(name, &entry{loader: loader}); err != nil {
		return fmt.Errorf("register namespace: %w", err)
	}
	return nil
}

// Names lists the registered namespaces in registration order.
func (n *Namespaces) Names() []string {
	return n.entries.Names()
}

// Load loads the named namespace, running its loader if it has not run yet.
func (n *Namespaces) Load(name string) (*Namespace, error) {
	e, ok := n.entries.Get(name)
	if !ok {
		return nil, ErrNamespaceNotFound
	}
	e.once.Do(func() {
		ns := newNamespace(name)
		n.logger.Debug("Loading namespace", "namespace", name)
		if err := e.loader(ns); err != nil {
			e.err = fmt.Errorf("%w: %w", ErrLoadFailed, err)
			return
		}
		e.ns = ns
	})
	return e.ns, e.err
}

// Resolve implements Resolver.
func (n *Namespaces) Resolve(path string) (any, error) {
	nsName, attr, err := Split(path)
	if err != nil {
		return nil, NewError(path, err)
	}

	ns, err := n.Load(nsName)
	if err != nil {
		return nil, NewError(path, err)
	}

	value, ok, err := ns.Get(attr)
	if !ok {
		return nil, NewError(path, ErrAttributeNotFound)
	}
	if err != nil {
		return nil, NewError(path, err)
	}
	return value, nil
}

var _ Resolver = (*Namespaces)(nil)

var defaultNamespaces = NewNamespaces()

// Default returns the process-wide namespace registry.
func Default() *Namespaces {
	return defaultNamespaces
}
