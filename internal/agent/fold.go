package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/linq-team/bluebridge/internal/anthropic"
	"github.com/linq-team/bluebridge/internal/linq"
)

// fold interprets the provider's mixed text/tool output into a Plan.
// Free-text blocks accumulate (newline-joined) into the outgoing text.
// Tool invocations fold last-invocation-wins per tool kind: the model is
// only expected to call each tool once, but nothing is assumed about
// duplicates. Malformed or out-of-context invocations are discarded
// individually; the rest of the plan survives.
func (e *Engine) fold(ctx context.Context, turn Turn, resp *anthropic.MessagesResponse) Plan {
	var plan Plan
	var textParts []string

	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.BlockText:
			if block.Text != "" {
				textParts = append(textParts, block.Text)
			}
		case anthropic.BlockToolUse:
			e.foldTool(ctx, turn, &plan, block)
		}
	}

	plan.Text = strings.Join(textParts, "\n")
	return plan
}

func (e *Engine) foldTool(ctx context.Context, turn Turn, plan *Plan, block anthropic.ContentBlock) {
	switch block.Name {
	case toolReaction:
		var input struct {
			Type  string `json:"type"`
			Emoji string `json:"emoji"`
		}
		if err := json.Unmarshal(block.Input, &input); err != nil || !linq.ValidReaction(input.Type, input.Emoji) {
			e.logger.Warn("discarding malformed reaction", "input", string(block.Input))
			return
		}
		reaction := linq.Reaction{Kind: input.Type}
		if input.Type == linq.ReactionCustom {
			reaction.Emoji = input.Emoji
		}
		plan.Reaction = &reaction

	case toolEffect:
		var input struct {
			Family string `json:"effect_type"`
			Name   string `json:"effect"`
		}
		if err := json.Unmarshal(block.Input, &input); err != nil || !linq.ValidEffect(input.Family, input.Name) {
			e.logger.Warn("discarding malformed effect", "input", string(block.Input))
			return
		}
		if !turn.Service.SupportsEffects() {
			e.logger.Warn("discarding effect on unsupported service", "service", turn.Service, "effect", input.Name)
			return
		}
		plan.Effect = &linq.Effect{Family: input.Family, Name: input.Name}

	case toolRename:
		var input struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(block.Input, &input); err != nil || input.Name == "" || !turn.IsGroup() {
			e.logger.Warn("discarding rename request", "input", string(block.Input), "group", turn.IsGroup())
			return
		}
		plan.Rename = input.Name

	case toolRemember:
		e.foldRemember(ctx, turn, plan, block.Input)

	case toolImage:
		var input struct {
			Prompt string `json:"prompt"`
		}
		if err := json.Unmarshal(block.Input, &input); err != nil || input.Prompt == "" {
			e.logger.Warn("discarding image request without prompt")
			return
		}
		// Generation is deferred: text ships first, the image follows.
		plan.ImagePrompt = input.Prompt

	case toolGroupIcon:
		var input struct {
			Prompt string `json:"prompt"`
		}
		if err := json.Unmarshal(block.Input, &input); err != nil || input.Prompt == "" || !turn.IsGroup() {
			e.logger.Warn("discarding group icon request", "group", turn.IsGroup())
			return
		}
		plan.IconPrompt = input.Prompt

	default:
		// Server-side tools (web search) resolve inside the provider;
		// anything else is a tool we never declared.
	}
}

// foldRemember applies a remember_user invocation. Name and fact updates
// are attempted independently; the plan only records what the store
// confirms as a genuine change, so a redundant save produces no
// "remembered" signal downstream.
func (e *Engine) foldRemember(ctx context.Context, turn Turn, plan *Plan, raw json.RawMessage) {
	var input struct {
		Handle string `json:"handle"`
		Name   string `json:"name"`
		Fact   string `json:"fact"`
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		e.logger.Warn("discarding malformed remember invocation", "input", string(raw))
		return
	}

	target := input.Handle
	if target == "" {
		target = turn.Sender
	}
	if target == "" {
		return
	}

	var nameChanged, factChanged bool
	if input.Name != "" {
		changed, err := e.store.SetName(ctx, target, input.Name)
		if err != nil {
			e.logger.Warn("set name failed", "handle", target, "error", err)
		} else {
			nameChanged = changed
		}
	}
	if input.Fact != "" {
		changed, err := e.store.AddFact(ctx, target, input.Fact)
		if err != nil {
			e.logger.Warn("add fact failed", "handle", target, "error", err)
		} else {
			factChanged = changed
		}
	}

	if nameChanged || factChanged {
		remembered := &Remembered{ForSender: input.Handle == "" || input.Handle == turn.Sender}
		if nameChanged {
			remembered.Name = input.Name
		}
		if factChanged {
			remembered.Fact = input.Fact
		}
		plan.Remembered = remembered
	}
}
