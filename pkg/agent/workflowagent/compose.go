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

package workflowagent

import (
	"fmt"

	"github.com/kadirpekel/toddleops/pkg/agent"
	"github.com/kadirpekel/toddleops/pkg/archetype"
)

// ComposeConfig configures Compose.
type ComposeConfig struct {
	Name        string
	Description string
	SubAgents   []agent.Agent

	// MaxIterations applies to archetype.Loop only.
	MaxIterations uint
}

// Compose builds the workflow agent for style.
func Compose(style archetype.Style, cfg ComposeConfig) (agent.Agent, error) {
	switch style {
	case archetype.Sequential:
		return NewSequential(SequentialConfig{
			Name:        cfg.Name,
			Description: cfg.Description,
			SubAgents:   cfg.SubAgents,
		})
	case archetype.Parallel:
		return NewParallel(ParallelConfig{
			Name:        cfg.Name,
			Description: cfg.Description,
			SubAgents:   cfg.SubAgents,
		})
	case archetype.Loop:
		return NewLoop(LoopConfig{
			Name:          cfg.Name,
			Description:   cfg.Description,
			SubAgents:     cfg.SubAgents,
			MaxIterations: cfg.MaxIterations,
		})
	default:
		return nil, fmt.Errorf("%w: %s: unknown orchestration style %q", agent.ErrInvalidConfig, cfg.Name, style)
	}
}
