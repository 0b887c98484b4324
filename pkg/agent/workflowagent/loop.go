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
	"iter"

	"github.com/kadirpekel/toddleops/pkg/agent"
)

// LoopConfig defines the configuration for a LoopAgent.
type LoopConfig struct {
	// Name is the agent name.
	Name string

	// Description describes what the agent does.
	Description string

	// SubAgents are the agents to run in each iteration.
	SubAgents []agent.Agent

	// MaxIterations is the maximum number of iterations.
	// If 0, runs until a sub-agent escalates.
	MaxIterations uint
}

// NewLoop creates a LoopAgent.
//
// LoopAgent repeatedly runs its sub-agents in sequence for a specified number
// of iterations or until a sub-agent's event carries an Escalate action,
// which is how a refiner approves the work with exit_loop.
func NewLoop(cfg LoopConfig) (agent.Agent, error) {
	maxIterations := cfg.MaxIterations

	return agent.New(agent.Config{
		Name:        cfg.Name,
		Description: cfg.Description,
		SubAgents:   cfg.SubAgents,
		Run: func(ctx agent.InvocationContext) iter.Seq2[*agent.Event, error] {
			return runLoop(ctx, maxIterations, true)
		},
	})
}

// runLoop runs the sub-agents in order, maxIterations times (forever when
// zero). With stopOnEscalate an Escalate action from any event ends the loop
// after the escalating sub-agent finishes.
func runLoop(ctx agent.InvocationContext, maxIterations uint, stopOnEscalate bool) iter.Seq2[*agent.Event, error] {
	return func(yield func(*agent.Event, error) bool) {
		for iteration := uint(0); maxIterations == 0 || iteration < maxIterations; iteration++ {
			for _, subAgent := range ctx.Agent().SubAgents() {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return
				}
				if ctx.Ended() {
					return
				}

				escalated := false
				for event, err := range subAgent.Run(agent.ForSubAgent(ctx, subAgent)) {
					if !yield(event, err) || err != nil {
						return
					}
					if stopOnEscalate && event != nil && event.Actions.Escalate {
						escalated = true
					}
				}

				if escalated {
					return
				}
			}
		}
	}
}
