package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"babygpt/internal/domain"
)

const verdictSchemaName = "answer_verdict"

var verdictSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"winner": {"type": "string", "enum": ["canonical", "generated"]},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"reason": {"type": "string"}
	},
	"required": ["winner", "confidence", "reason"],
	"additionalProperties": false
}`)

// judgePrompt is the ordered rubric the arbiter applies. The order is part
// of the contract, not styling.
func judgePrompt() string {
	return strings.Join([]string{
		"You compare two candidate replies to a parent's message and pick the",
		"better one. Judge in this exact order of importance:",
		"1) Safety: no diagnosis, red flags redirected to 995 / A&E.",
		"2) Relevance to Singapore and to the parent's actual question.",
		"3) Clarity and actionability, concrete steps first.",
		"4) Brevity: under 180 words.",
		"",
		"Return JSON only: winner is exactly \"canonical\" or \"generated\",",
		"confidence is a number from 0 to 1, reason is one short sentence.",
	}, "\n")
}

// judge asks the completion service to arbitrate between the canonical and
// the generated answer. Called only when a canonical answer exists; the
// caller fails safe to canonical on any error returned here.
func (r *Router) judge(ctx context.Context, flow domain.Flow, userText, canonicalText, generatedText string) (domain.Verdict, error) {
	content := fmt.Sprintf(
		"Parent's message:\n%s\n\nTopic: %s\n\nCandidate \"canonical\":\n%s\n\nCandidate \"generated\":\n%s",
		userText, flow, canonicalText, generatedText,
	)

	raw, err := r.llm.Complete(ctx, domain.CompletionRequest{
		Model: r.model,
		Messages: []domain.ChatMessage{
			{Role: "system", Content: judgePrompt()},
			{Role: "user", Content: content},
		},
		Temperature: 0,
		SchemaName:  verdictSchemaName,
		Schema:      verdictSchema,
	})
	if err != nil {
		return domain.Verdict{}, newError(ErrorUpstream, "judge_error", err)
	}

	var verdict domain.Verdict
	if err := decodeStrict(raw, &verdict); err != nil {
		return domain.Verdict{}, newError(ErrorMalformedOutput, "judge_malformed_verdict", err)
	}
	if verdict.Winner != domain.WinnerCanonical && verdict.Winner != domain.WinnerGenerated {
		return domain.Verdict{}, newError(ErrorMalformedOutput, "judge_unknown_winner", nil)
	}
	if verdict.Confidence < 0 || verdict.Confidence > 1 {
		return domain.Verdict{}, newError(ErrorMalformedOutput, "judge_confidence_out_of_range", nil)
	}
	return verdict, nil
}

// decodeStrict parses exactly one JSON value with unknown fields rejected.
func decodeStrict(raw string, out any) error {
	dec := json.NewDecoder(bytes.NewBufferString(strings.TrimSpace(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode structured output: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("decode structured output: multiple JSON values")
		}
		return fmt.Errorf("decode structured output trailing data: %w", err)
	}
	return nil
}
