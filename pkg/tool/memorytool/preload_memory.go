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

// Package memorytool provides tools that bring cross-session memory into a
// model request.
package memorytool

import (
	"fmt"
	"strings"

	"github.com/kadirpekel/toddleops/pkg/tool"
)

// PreloadMemory searches memory with the user's message before every model
// call and prepends the matches to the system instruction.
type PreloadMemory struct{}

// NewPreloadMemory returns the preload_memory tool.
func NewPreloadMemory() *PreloadMemory {
	return &PreloadMemory{}
}

func (PreloadMemory) Name() string { return "preload_memory" }

func (PreloadMemory) Description() string {
	return "Preloads memories relevant to the user's request into the instruction."
}

// ProcessRequest is a no-op when the invocation has no user text or memory
// finds nothing.
func (PreloadMemory) ProcessRequest(ctx tool.Context, req *tool.Request) error {
	query := strings.TrimSpace(ctx.UserContent().Text())
	if query == "" {
		return nil
	}

	resp, err := ctx.SearchMemory(ctx, query)
	if err != nil {
		return fmt.Errorf("preload memory: %w", err)
	}
	if resp == nil || len(resp.Results) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("The following content is from your previous conversations with the user.\n")
	sb.WriteString("They may be useful for answering the user's current query.\n")
	sb.WriteString("<PAST_CONVERSATIONS>\n")
	for _, r := range resp.Results {
		sb.WriteString(strings.TrimSpace(r.Content))
		sb.WriteString("\n")
	}
	sb.WriteString("</PAST_CONVERSATIONS>")

	if req.SystemInstruction == "" {
		req.SystemInstruction = sb.String()
	} else {
		req.SystemInstruction = sb.String() + "\n\n" + req.SystemInstruction
	}
	return nil
}

var (
	_ tool.Tool             = PreloadMemory{}
	_ tool.RequestProcessor = PreloadMemory{}
)
