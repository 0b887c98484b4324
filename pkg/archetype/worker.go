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

package archetype

import (
	"fmt"
	"slices"
)

// WorkerConfig declares a leaf agent.
type WorkerConfig struct {
	Spec

	// Capability tags the kind of work, e.g. "formatting" or "persistence".
	Capability     string
	AcceptedInputs []string
	Produces       []string
	// HelperTools are dotted paths to auxiliary tools needed at runtime.
	HelperTools []string
}

// Worker is a leaf archetype with no managed sub-agents.
type Worker struct {
	base
	capability     string
	acceptedInputs []string
	produces       []string
	helperTools    []string
}

// NewWorker validates cfg and returns an immutable worker archetype.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if err := cfg.Spec.validate(); err != nil {
		return nil, err
	}
	for _, k := range append(slices.Clone(cfg.AcceptedInputs), cfg.Produces...) {
		if !IsIdentifier(k) {
			return nil, fmt.Errorf("%w: %s: key %q is not a valid identifier", ErrInvalid, cfg.Name, k)
		}
	}
	for i, p := range cfg.HelperTools {
		if p == "" {
			return nil, fmt.Errorf("%w: %s: helper tool %d is empty", ErrInvalid, cfg.Name, i)
		}
	}

	return &Worker{
		base:           base{spec: cfg.Spec.clone()},
		capability:     cfg.Capability,
		acceptedInputs: slices.Clone(cfg.AcceptedInputs),
		produces:       slices.Clone(cfg.Produces),
		helperTools:    slices.Clone(cfg.HelperTools),
	}, nil
}

// MustWorker is like NewWorker but panics on an invalid declaration.
// It is intended for package-level catalogs.
func MustWorker(cfg WorkerConfig) *Worker {
	w, err := NewWorker(cfg)
	if err != nil {
		panic(err)
	}
	return w
}

func (w *Worker) Kind() Kind               { return KindWorker }
func (w *Worker) Capability() string       { return w.capability }
func (w *Worker) AcceptedInputs() []string { return slices.Clone(w.acceptedInputs) }
func (w *Worker) Produces() []string       { return slices.Clone(w.produces) }
func (w *Worker) HelperTools() []string    { return slices.Clone(w.helperTools) }
