package usecase

import (
	"context"
	"fmt"
	"strings"

	"babygpt/internal/domain"
	"babygpt/internal/links"
)

const composeTemperature = 0.3

// personaPrompt constrains tone, length and the no-diagnosis rule for every
// composed answer.
func personaPrompt() string {
	return strings.Join([]string{
		"You are BabyGPT (Singapore Edition), a warm, practical assistant for",
		"first-time parents of babies aged 0-3 in Singapore.",
		"",
		"Rules:",
		"1) Lead with numbered, actionable steps; explanation after.",
		"2) Keep the whole reply under 180 words.",
		"3) Never diagnose. For clinical red flags tell the parent to call 995",
		"   or go to the nearest A&E.",
		"4) Prefer official Singapore resources (HealthHub, KKH, ECDA, MOM,",
		"   LifeSG) when pointing to further reading.",
		"5) Use simple language and the occasional reassuring tone; no markdown",
		"   headings.",
	}, "\n")
}

// composeContext gives the model the resolved topic and the operator's base
// steps as grounding.
func composeContext(flow domain.Flow, tag domain.Tag, hint string) string {
	topic := string(flow)
	if tag != domain.TagNone {
		topic = fmt.Sprintf("%s (subtopic: %s)", flow, tag)
	}
	if hint == "" {
		return "Topic: " + topic
	}
	return fmt.Sprintf("Topic: %s\nBase steps to build on: %s", topic, hint)
}

// compose requests a generated answer for the resolved flow and extracts
// every URL it contains. Quota exhaustion and other completion failures
// propagate to the caller, coded.
func (r *Router) compose(ctx context.Context, flow domain.Flow, tag domain.Tag, userText string) (domain.GeneratedAnswer, error) {
	raw, err := r.llm.Complete(ctx, domain.CompletionRequest{
		Model: r.model,
		Messages: []domain.ChatMessage{
			{Role: "system", Content: personaPrompt()},
			{Role: "system", Content: composeContext(flow, tag, r.bank.Hint(flow))},
			{Role: "user", Content: userText},
		},
		Temperature: composeTemperature,
	})
	if err != nil {
		return domain.GeneratedAnswer{}, newError(ErrorUpstream, "compose_error", err)
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return domain.GeneratedAnswer{}, newError(ErrorMalformedOutput, "compose_empty_answer", nil)
	}
	return domain.GeneratedAnswer{
		Text:           text,
		ExtractedLinks: links.ExtractURLs(text),
	}, nil
}
