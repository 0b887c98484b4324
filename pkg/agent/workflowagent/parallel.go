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
	"iter"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/toddleops/pkg/agent"
)

// ParallelConfig defines the configuration for a ParallelAgent.
type ParallelConfig struct {
	// Name is the agent name.
	Name string

	// Description describes what the agent does.
	Description string

	// SubAgents are the agents to run in parallel.
	SubAgents []agent.Agent
}

// NewParallel creates a ParallelAgent.
//
// ParallelAgent runs its sub-agents concurrently, each on its own branch,
// all receiving the same input. Researchers that write distinct output keys
// are the typical use.
func NewParallel(cfg ParallelConfig) (agent.Agent, error) {
	return agent.New(agent.Config{
		Name:        cfg.Name,
		Description: cfg.Description,
		SubAgents:   cfg.SubAgents,
		Run: func(ctx agent.InvocationContext) iter.Seq2[*agent.Event, error] {
			return runParallel(ctx)
		},
	})
}

// result holds an event or error from a sub-agent. The producer waits on
// ack until the consumer has yielded the event, so a sub-agent never runs
// ahead of the persistence of its own events.
type result struct {
	event *agent.Event
	err   error
	ack   chan struct{}
}

func runParallel(ctx agent.InvocationContext) iter.Seq2[*agent.Event, error] {
	return func(yield func(*agent.Event, error) bool) {
		var (
			errGroup, errGroupCtx = errgroup.WithContext(ctx)
			doneChan              = make(chan struct{})
			resultsChan           = make(chan result)
		)

		groupCtx := agent.NewInvocationContext(errGroupCtx, agent.InvocationContextParams{
			InvocationID: ctx.InvocationID(),
			Agent:        ctx.Agent(),
			Session:      ctx.Session(),
			Memory:       ctx.Memory(),
			Branch:       ctx.Branch(),
			UserContent:  ctx.UserContent(),
			RunConfig:    ctx.RunConfig(),
		})

		for _, subAgent := range ctx.Agent().SubAgents() {
			subCtx := agent.ForSubAgent(groupCtx, subAgent)
			errGroup.Go(func() error {
				if err := runSubAgent(subCtx, subAgent, resultsChan, doneChan); err != nil {
					return fmt.Errorf("failed to run sub-agent %q: %w", subAgent.Name(), err)
				}
				return nil
			})
		}

		go func() {
			_ = errGroup.Wait()
			close(resultsChan)
		}()

		defer func() {
			close(doneChan)
			for range resultsChan {
			}
		}()
		for res := range resultsChan {
			ok := yield(res.event, res.err)
			close(res.ack)
			if !ok || res.err != nil {
				return
			}
		}
	}
}

func runSubAgent(ctx agent.InvocationContext, ag agent.Agent, results chan<- result, done <-chan struct{}) error {
	for event, err := range ag.Run(ctx) {
		res := result{event: event, err: err, ack: make(chan struct{})}
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case results <- res:
		}

		select {
		case <-done:
			return nil
		case <-res.ack:
		}
		if err != nil {
			return err
		}
	}
	return nil
}
