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

// Package geminitool provides tools executed by Gemini itself rather than
// by the agent.
package geminitool

import (
	"slices"

	"github.com/kadirpekel/toddleops/pkg/model/gemini"
	"github.com/kadirpekel/toddleops/pkg/tool"
)

// GoogleSearch enables Google Search grounding on the model request. The
// search runs inside the model call; the agent never dispatches it.
type GoogleSearch struct{}

// NewGoogleSearch returns the google_search tool.
func NewGoogleSearch() *GoogleSearch {
	return &GoogleSearch{}
}

func (GoogleSearch) Name() string        { return gemini.BuiltinGoogleSearch }
func (GoogleSearch) Description() string { return "Searches the web with Google to ground the answer." }

// ProcessRequest adds the search tool to req once.
func (GoogleSearch) ProcessRequest(_ tool.Context, req *tool.Request) error {
	if !slices.Contains(req.BuiltinTools, gemini.BuiltinGoogleSearch) {
		req.BuiltinTools = append(req.BuiltinTools, gemini.BuiltinGoogleSearch)
	}
	return nil
}

var (
	_ tool.Tool             = GoogleSearch{}
	_ tool.RequestProcessor = GoogleSearch{}
)
