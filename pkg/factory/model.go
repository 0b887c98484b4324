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

package factory

import (
	"errors"
	"strings"
	"sync"

	"github.com/kadirpekel/toddleops/pkg/model"
	"github.com/kadirpekel/toddleops/pkg/model/router"
)

// ErrNoModel is returned for an empty model identifier.
var ErrNoModel = errors.New("model identifier is required")

// ModelResolver turns a model identifier into a client.
type ModelResolver interface {
	ResolveModel(id string) (model.LLM, error)
}

// ModelResolverFunc adapts a function to ModelResolver.
type ModelResolverFunc func(id string) (model.LLM, error)

func (f ModelResolverFunc) ResolveModel(id string) (model.LLM, error) {
	return f(id)
}

// RouterResolver routes identifiers starting with "gemini" to the Gemini
// client and every other identifier to the named external model router,
// which expects a provider prefix such as "ollama_chat/" or "anthropic/".
type RouterResolver struct {
	router *router.Router
}

// NewRouterResolver creates a resolver backed by a default router.
func NewRouterResolver(cfg router.Config) *RouterResolver {
	return &RouterResolver{router: router.NewDefault(cfg)}
}

// ResolveModel implements ModelResolver. Aliases are expanded first.
func (r *RouterResolver) ResolveModel(id string) (model.LLM, error) {
	if id == "" {
		return nil, ErrNoModel
	}
	canonical, err := r.router.Canonical(id)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(canonical, "gemini") && !strings.Contains(canonical, "/") {
		canonical = "gemini/" + canonical
	}
	return r.router.ResolveModel(canonical)
}

// Close closes every client the resolver created.
func (r *RouterResolver) Close() error {
	return r.router.Close()
}

var (
	defaultResolverOnce sync.Once
	defaultResolver     *RouterResolver
)

// DefaultModelResolver returns a process-wide RouterResolver configured from
// the environment, created on first use.
func DefaultModelResolver() *RouterResolver {
	defaultResolverOnce.Do(func() {
		defaultResolver = NewRouterResolver(router.ConfigFromEnv())
	})
	return defaultResolver
}
