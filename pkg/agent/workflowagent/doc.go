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

// Package workflowagent provides agents that orchestrate other agents.
//
// # SequentialAgent
//
// Runs sub-agents once, in the order they are listed:
//
//	pipeline, _ := workflowagent.NewSequential(workflowagent.SequentialConfig{
//	    Name:      "toddleops_sequence",
//	    SubAgents: []agent.Agent{research, qa, formatter},
//	})
//
// # ParallelAgent
//
// Runs sub-agents simultaneously on their own branches:
//
//	researchers, _ := workflowagent.NewParallel(workflowagent.ParallelConfig{
//	    Name:      "project_researcher",
//	    SubAgents: []agent.Agent{art, science, silly},
//	})
//
// # LoopAgent
//
// Runs sub-agents repeatedly for N iterations or until one escalates:
//
//	safety, _ := workflowagent.NewLoop(workflowagent.LoopConfig{
//	    Name:          "safety_refinement_loop",
//	    SubAgents:     []agent.Agent{critic, refiner},
//	    MaxIterations: 1,
//	})
//
// Every workflow agent stops at the first error a sub-agent yields.
// Compose picks the constructor for an orchestration style.
package workflowagent
