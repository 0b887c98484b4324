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

package llmagent

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/toddleops/pkg/agent"
	"github.com/kadirpekel/toddleops/pkg/instruction"
	"github.com/kadirpekel/toddleops/pkg/model"
	"github.com/kadirpekel/toddleops/pkg/observability"
	"github.com/kadirpekel/toddleops/pkg/tool"
)

type stepResult int

const (
	stepContinue stepResult = iota
	stepDone
	stepStopped
)

// flow runs the model/tool loop of one LLM agent call.
type flow struct {
	agent *llmAgent
}

func newFlow(a *llmAgent) *flow {
	return &flow{agent: a}
}

// Run calls the model until it answers without tools, a tool ends the turn,
// or the iteration limit is reached.
func (f *flow) Run(ctx agent.InvocationContext) iter.Seq2[*agent.Event, error] {
	return func(yield func(*agent.Event, error) bool) {
		start := time.Now()
		spanCtx, span := observability.StartSpan(ctx, observability.SpanAgentRun,
			"agent.name", f.agent.name,
			"invocation.id", ctx.InvocationID(),
			"agent.branch", ctx.Branch())

		var runErr error
		defer func() {
			observability.EndSpan(span, runErr)
			f.agent.recorder().RecordAgentRun(spanCtx, f.agent.name, time.Since(start), runErr)
		}()

		maxIterations := f.agent.maxIterations
		if rc := ctx.RunConfig(); rc != nil && rc.MaxLLMCalls > 0 {
			maxIterations = rc.MaxLLMCalls
		}

		for i := 0; i < maxIterations; i++ {
			if err := ctx.Err(); err != nil {
				runErr = err
				yield(nil, err)
				return
			}
			if ctx.Ended() {
				return
			}

			result, err := f.runOneStep(ctx, spanCtx, yield)
			if err != nil {
				runErr = err
				yield(nil, err)
				return
			}
			if result != stepContinue {
				return
			}
		}

		runErr = fmt.Errorf("%w: %s stopped after %d model calls", ErrMaxIterations, f.agent.name, maxIterations)
		yield(nil, runErr)
	}
}

func (f *flow) runOneStep(ctx agent.InvocationContext, spanCtx context.Context, yield func(*agent.Event, error) bool) (stepResult, error) {
	tools := f.agent.resolveTools(ctx)

	req, err := f.buildRequest(ctx, tools)
	if err != nil {
		return stepDone, err
	}

	resp, err := f.callModel(spanCtx, req)
	if err != nil {
		return stepDone, err
	}

	modelEvent := f.newEvent(ctx)
	modelEvent.Message = responseMessage(resp)
	for _, call := range resp.ToolCalls {
		modelEvent.ToolCalls = append(modelEvent.ToolCalls, agent.ToolCallState{
			ID:   call.ID,
			Name: call.Name,
			Args: call.Args,
		})
	}

	if !resp.HasToolCalls() {
		f.applyOutput(modelEvent, resp.TextContent())
		modelEvent.TurnComplete = true
		if !yield(modelEvent, nil) {
			return stepStopped, nil
		}
		return stepDone, nil
	}

	if !yield(modelEvent, nil) {
		return stepStopped, nil
	}

	resultEvent := f.handleToolCalls(ctx, spanCtx, resp.ToolCalls, tools)
	if !yield(resultEvent, nil) {
		return stepStopped, nil
	}
	if resultEvent.Actions.Escalate || resultEvent.Actions.SkipSummarization {
		return stepDone, nil
	}
	return stepContinue, nil
}

func (f *flow) newEvent(ctx agent.InvocationContext) *agent.Event {
	event := agent.NewEvent(ctx.InvocationID())
	event.Author = f.agent.name
	event.Branch = ctx.Branch()
	return event
}

// buildRequest renders the instruction, gathers history and tool
// definitions, then lets request-processing tools adjust the result.
func (f *flow) buildRequest(ctx agent.InvocationContext, tools []tool.Tool) (*model.Request, error) {
	systemInstruction, err := instruction.InjectState(ctx, f.agent.instruction)
	if err != nil {
		return nil, fmt.Errorf("agent %s: render instruction: %w", f.agent.name, err)
	}

	req := &model.Request{
		SystemInstruction: systemInstruction,
		Messages:          f.agent.buildMessages(ctx),
		Config:            f.agent.generateConfig.Clone(),
	}

	for _, t := range tools {
		if _, ok := t.(tool.CallableTool); ok {
			req.Tools = append(req.Tools, tool.ToDefinition(t))
		}
	}

	if f.agent.outputSchema != nil {
		if req.Config == nil {
			req.Config = &model.GenerateConfig{}
		}
		req.Config.ResponseMIMEType = "application/json"
		req.Config.ResponseSchema = f.agent.outputSchema
	}

	view := &tool.Request{
		SystemInstruction: req.SystemInstruction,
		Messages:          req.Messages,
		BuiltinTools:      req.BuiltinTools,
	}
	processed := false
	for _, t := range tools {
		rp, ok := t.(tool.RequestProcessor)
		if !ok {
			continue
		}
		if err := rp.ProcessRequest(newToolContext(ctx, ""), view); err != nil {
			return nil, fmt.Errorf("agent %s: tool %s: process request: %w", f.agent.name, t.Name(), err)
		}
		processed = true
	}
	if processed {
		req.SystemInstruction = view.SystemInstruction
		req.Messages = view.Messages
		req.BuiltinTools = view.BuiltinTools
	}

	return req, nil
}

func (f *flow) callModel(ctx context.Context, req *model.Request) (*model.Response, error) {
	llm := f.agent.model
	start := time.Now()
	spanCtx, span := observability.StartSpan(ctx, observability.SpanLLMRequest,
		"llm.model", llm.Name(),
		"llm.provider", string(llm.Provider()))

	resp, err := llm.GenerateContent(spanCtx, req)
	if err == nil && resp == nil {
		err = fmt.Errorf("model %s returned no response", llm.Name())
	}

	var in, out int
	if resp != nil && resp.Usage != nil {
		in, out = resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	}
	observability.EndSpan(span, err)
	f.agent.recorder().RecordLLMCall(spanCtx, llm.Name(), time.Since(start), in, out, err)

	if err != nil {
		return nil, fmt.Errorf("agent %s: model call failed: %w", f.agent.name, err)
	}
	return resp, nil
}

// handleToolCalls runs every requested tool in order and returns a single
// event carrying all results and the merged actions.
func (f *flow) handleToolCalls(ctx agent.InvocationContext, spanCtx context.Context, calls []tool.Call, tools []tool.Tool) *agent.Event {
	event := f.newEvent(ctx)
	parts := make([]a2a.Part, 0, len(calls))

	for _, call := range calls {
		content, isErr, actions := f.runTool(ctx, spanCtx, call, tools)
		if actions != nil {
			event.Actions.Merge(*actions)
		}

		event.ToolResults = append(event.ToolResults, agent.ToolResultState{
			ToolCallID: call.ID,
			Name:       call.Name,
			Content:    content,
			IsError:    isErr,
		})
		parts = append(parts, model.ToolResultPart(model.ToolResult{
			ToolCallID: call.ID,
			Name:       call.Name,
			Content:    content,
			IsError:    isErr,
		}))
	}

	event.Message = a2a.NewMessage(a2a.MessageRoleUser, parts...)
	return event
}

func (f *flow) runTool(ctx agent.InvocationContext, spanCtx context.Context, call tool.Call, tools []tool.Tool) (string, bool, *agent.EventActions) {
	t := findTool(tools, call.Name)
	if t == nil {
		f.agent.logger.Warn("Model called unknown tool", "agent", f.agent.name, "tool", call.Name)
		return fmt.Sprintf("Error: tool %q not found", call.Name), true, nil
	}
	callable, ok := t.(tool.CallableTool)
	if !ok {
		return fmt.Sprintf("Error: tool %q cannot be called directly", call.Name), true, nil
	}

	toolCtx := newToolContext(ctx, call.ID)
	start := time.Now()
	_, span := observability.StartSpan(spanCtx, observability.SpanToolExecution,
		"tool.name", call.Name,
		"tool.call_id", call.ID)

	result, err := callable.Call(toolCtx, call.Args)

	observability.EndSpan(span, err)
	f.agent.recorder().RecordToolExecution(spanCtx, call.Name, time.Since(start), err)

	if err != nil {
		f.agent.logger.Warn("Tool execution failed",
			"agent", f.agent.name,
			"tool", call.Name,
			"error", err)
		return fmt.Sprintf("Error: %v", err), true, toolCtx.Actions()
	}
	return formatToolResult(result), false, toolCtx.Actions()
}

// applyOutput stores the final answer under the agent's output key.
func (f *flow) applyOutput(event *agent.Event, text string) {
	if f.agent.outputKey == "" {
		return
	}
	if f.agent.outputSchema == nil {
		event.Actions.StateDelta[f.agent.outputKey] = text
		return
	}

	var value any
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &value); err != nil {
		f.agent.logger.Warn("Structured output is not valid JSON, storing raw text",
			"agent", f.agent.name,
			"output_key", f.agent.outputKey,
			"error", err)
		event.Actions.StateDelta[f.agent.outputKey] = text
		return
	}
	event.Actions.StateDelta[f.agent.outputKey] = value
}

func findTool(tools []tool.Tool, name string) tool.Tool {
	for _, t := range tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

// responseMessage converts resp to a message that always carries the
// tool_use parts of its calls, so they survive in history.
func responseMessage(resp *model.Response) *a2a.Message {
	msg := resp.ToMessage()
	if msg == nil {
		if !resp.HasToolCalls() {
			return nil
		}
		msg = a2a.NewMessage(a2a.MessageRoleAgent)
	}
	if resp.HasToolCalls() && len(model.ToolCallsOf(msg)) == 0 {
		for _, call := range resp.ToolCalls {
			msg.Parts = append(msg.Parts, model.ToolUsePart(call))
		}
	}
	return msg
}

func formatToolResult(result map[string]any) string {
	if result == nil {
		return ""
	}
	if len(result) == 1 {
		if s, ok := result["result"].(string); ok {
			return s
		}
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(data)
}

// stripCodeFence removes a surrounding ```json fence, if present.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.Index(text, "\n"); i >= 0 {
		text = text[i+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
