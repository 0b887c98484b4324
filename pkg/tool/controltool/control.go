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

// Package controltool provides tools that steer workflow loops.
//
//   - exit_loop: approve the current work and leave the enclosing loop
//   - escalate: give up and hand the problem to the enclosing workflow
//
// Both work by setting EventActions flags on the tool response event. A
// loop agent stops when it sees Escalate; the calling LLM agent ends its
// own turn at the same time.
package controltool

import (
	"github.com/kadirpekel/toddleops/pkg/tool"
)

// ExitLoopName is the name the model calls exit_loop by.
const ExitLoopName = "exit_loop"

// StatusApproved is returned by exit_loop.
const StatusApproved = "APPROVED"

// ExitLoop creates the exit_loop tool. A refiner calls it once the critic's
// report finds nothing left to fix.
//
// Usage in instruction:
//
//	If the safety report approves the project, call `exit_loop`.
func ExitLoop() tool.CallableTool {
	return &exitLoopTool{}
}

type exitLoopTool struct{}

func (t *exitLoopTool) Name() string {
	return ExitLoopName
}

func (t *exitLoopTool) Description() string {
	return "Call this function ONLY when the critique indicates no further changes are needed, signaling the iterative process should end."
}

func (t *exitLoopTool) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *exitLoopTool) Call(ctx tool.Context, args map[string]any) (map[string]any, error) {
	ctx.Actions().Escalate = true
	return map[string]any{"status": StatusApproved}, nil
}

// Escalate creates a tool that lets an agent abandon the enclosing loop
// with a reason.
func Escalate() tool.CallableTool {
	return &escalateTool{}
}

type escalateTool struct{}

func (t *escalateTool) Name() string {
	return "escalate"
}

func (t *escalateTool) Description() string {
	return "Stops the current workflow loop. Call this when the task cannot be completed, explaining why."
}

func (t *escalateTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reason": map[string]any{
				"type":        "string",
				"description": "Why you are escalating",
			},
		},
		"required": []string{"reason"},
	}
}

func (t *escalateTool) Call(ctx tool.Context, args map[string]any) (map[string]any, error) {
	reason, _ := args["reason"].(string)
	if reason == "" {
		reason = "No reason provided"
	}

	ctx.Actions().Escalate = true
	ctx.Actions().SkipSummarization = true

	return map[string]any{
		"status": "escalated",
		"reason": reason,
	}, nil
}
