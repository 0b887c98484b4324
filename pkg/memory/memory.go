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

// Package memory provides cross-session memory backed by the project store.
//
// Finished sessions contribute their final project to the store, and
// searches return stored projects rendered as markdown, so an agent can
// recall what was made before without repeating it.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kadirpekel/toddleops/pkg/agent"
	"github.com/kadirpekel/toddleops/pkg/project"
	"github.com/kadirpekel/toddleops/pkg/session"
	"github.com/kadirpekel/toddleops/pkg/store"
)

// DefaultProjectKey is the state key holding the session's final project.
const DefaultProjectKey = "standard_project"

// DefaultLimit caps the number of search results.
const DefaultLimit = 5

// Config configures a Service.
type Config struct {
	Store store.ProjectStore

	// ProjectKey is read from session state on AddSession.
	// Defaults to DefaultProjectKey.
	ProjectKey string

	// Limit caps search results. Defaults to DefaultLimit.
	Limit int

	// ReadOnly disables AddSession.
	ReadOnly bool

	Logger *slog.Logger
}

// Service implements agent.Memory on a project store.
type Service struct {
	store      store.ProjectStore
	projectKey string
	limit      int
	readOnly   bool
	logger     *slog.Logger
}

// New creates a store-backed memory service.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("memory: store is required")
	}
	if cfg.ProjectKey == "" {
		cfg.ProjectKey = DefaultProjectKey
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		store:      cfg.Store,
		projectKey: cfg.ProjectKey,
		limit:      cfg.Limit,
		readOnly:   cfg.ReadOnly,
		logger:     cfg.Logger,
	}, nil
}

// AddSession saves the session's final project. Sessions without a project,
// and sessions that ended with the out-of-scope sentinel, are skipped.
func (s *Service) AddSession(ctx context.Context, sess agent.Session) error {
	if s.readOnly || sess == nil {
		return nil
	}

	value, err := sess.State().Get(s.projectKey)
	if errors.Is(err, session.ErrStateKeyNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("memory: read %s: %w", s.projectKey, err)
	}

	p, err := project.Decode(value)
	if err != nil {
		return fmt.Errorf("memory: session %s: %w", sess.ID(), err)
	}
	if p.IsOutOfScope() {
		s.logger.Debug("Skipping out-of-scope project", "session_id", sess.ID())
		return nil
	}

	rec, err := s.store.Save(ctx, p)
	if err != nil {
		return fmt.Errorf("memory: save project: %w", err)
	}

	s.logger.Info("Added project to memory",
		"session_id", sess.ID(),
		"project_id", rec.ID,
		"name", p.Name)
	return nil
}

// Search returns stored projects ranked by the number of query words they
// contain. Short words and stop words are ignored.
func (s *Service) Search(ctx context.Context, query string) (*agent.MemorySearchResponse, error) {
	words := tokenize(query)
	if len(words) == 0 {
		return &agent.MemorySearchResponse{}, nil
	}

	type hit struct {
		rec   store.Record
		score float64
	}
	hits := make(map[int64]*hit)
	for _, w := range words {
		recs, err := s.store.Search(ctx, w, 0)
		if err != nil {
			return nil, fmt.Errorf("memory: search: %w", err)
		}
		for _, r := range recs {
			h, ok := hits[r.ID]
			if !ok {
				h = &hit{rec: r}
				hits[r.ID] = h
			}
			h.score++
		}
	}

	ranked := make([]*hit, 0, len(hits))
	for _, h := range hits {
		ranked = append(ranked, h)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].rec.ID < ranked[j].rec.ID
	})
	if len(ranked) > s.limit {
		ranked = ranked[:s.limit]
	}

	resp := &agent.MemorySearchResponse{Results: make([]agent.MemoryResult, len(ranked))}
	for i, h := range ranked {
		resp.Results[i] = agent.MemoryResult{
			Content: project.Markdown(h.rec.Project),
			Score:   h.score / float64(len(words)),
			Metadata: map[string]any{
				"project_id": h.rec.ID,
				"name":       h.rec.Project.Name,
			},
		}
	}

	s.logger.Debug("Searched memory", "query", query, "results", len(resp.Results))
	return resp, nil
}

// stopWords never take part in matching.
var stopWords = map[string]struct{}{
	"and": {}, "are": {}, "but": {}, "can": {}, "for": {}, "from": {}, "has": {},
	"have": {}, "her": {}, "his": {}, "into": {}, "its": {}, "not": {}, "our": {},
	"some": {}, "that": {}, "the": {}, "their": {}, "them": {}, "then": {}, "this": {},
	"was": {}, "what": {}, "with": {}, "you": {}, "your": {},
}

// tokenize splits text into distinct lowercase words, in order, without
// short words and stop words.
func tokenize(text string) []string {
	seen := make(map[string]struct{})
	var words []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if len(word) <= 2 {
			continue
		}
		if _, ok := stopWords[word]; ok {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		words = append(words, word)
	}
	return words
}

var _ agent.Memory = (*Service)(nil)
