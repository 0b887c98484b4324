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

// Package resolve turns dotted paths such as "toddleops.tools.exit_loop"
// into live objects.
//
// A path is split at its last dot into a namespace ("toddleops.tools") and an
// attribute ("exit_loop"). The default strategy, Namespaces, keeps a registry
// of namespaces whose loaders run on first use. Other strategies (static
// tables, chains, caches) implement the same one-method Resolver interface
// and can be substituted wherever a Resolver is accepted.
package resolve

import (
	"errors"
	"fmt"
	"strings"
)

// Resolver resolves a dotted path to a live object.
type Resolver interface {
	Resolve(path string) (any, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(path string) (any, error)

func (f ResolverFunc) Resolve(path string) (any, error) {
	return f(path)
}

var (
	ErrMalformedPath     = errors.New("malformed dotted path")
	ErrNamespaceNotFound = errors.New("namespace not found")
	ErrAttributeNotFound = errors.New("attribute not found")
	ErrLoadFailed        = errors.New("namespace failed to load")
	ErrUnexpectedType    = errors.New("unexpected type")
)

// ResolutionError reports a failed dotted-path lookup. Resolution failures
// are not transient and are never retried.
type ResolutionError struct {
	Path      string
	Namespace string
	Attribute string
	Err       error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Path, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// NewError builds a ResolutionError for path, filling in its namespace and attribute.
func NewError(path string, err error) *ResolutionError {
	ns, attr, _ := Split(path)
	return &ResolutionError{Path: path, Namespace: ns, Attribute: attr, Err: err}
}

// Split splits a dotted path at its last dot.
func Split(path string) (namespace, attribute string, err error) {
	i := strings.LastIndex(path, ".")
	if i <= 0 || i == len(path)-1 {
		return "", "", ErrMalformedPath
	}
	namespace, attribute = path[:i], path[i+1:]
	for _, part := range strings.Split(namespace, ".") {
		if part == "" {
			return "", "", ErrMalformedPath
		}
	}
	return namespace, attribute, nil
}

// As resolves path and asserts the result to T.
func As[T any](r Resolver, path string) (T, error) {
	var zero T
	v, err := r.Resolve(path)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, NewError(path, fmt.Errorf("%w: got %T", ErrUnexpectedType, v))
	}
	return t, nil
}

// Map is a static lookup table keyed by full dotted path.
type Map map[string]any

func (m Map) Resolve(path string) (any, error) {
	ns, _, err := Split(path)
	if err != nil {
		return nil, NewError(path, err)
	}
	if v, ok := m[path]; ok {
		return v, nil
	}
	for key := range m {
		if kns, _, err := Split(key); err == nil && kns == ns {
			return nil, NewError(path, ErrAttributeNotFound)
		}
	}
	return nil, NewError(path, ErrNamespaceNotFound)
}

// Chain tries each resolver in order and falls through to the next one only
// when a resolver does not know the namespace.
func Chain(resolvers ...Resolver) Resolver {
	return ResolverFunc(func(path string) (any, error) {
		var last error = NewError(path, ErrNamespaceNotFound)
		for _, r := range resolvers {
			v, err := r.Resolve(path)
			if err == nil {
				return v, nil
			}
			if !errors.Is(err, ErrNamespaceNotFound) {
				return nil, err
			}
			last = err
		}
		return nil, last
	})
}
