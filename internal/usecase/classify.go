package usecase

import (
	"context"
	"encoding/json"
	"strings"

	"babygpt/internal/domain"
)

const intentSchemaName = "intent_classification"

var intentSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"intent": {
			"type": "string",
			"enum": ["cry", "nutrition", "milestones", "caregiver", "advice", "wellbeing", "help", "emergency", "unknown"]
		},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1}
	},
	"required": ["intent", "confidence"],
	"additionalProperties": false
}`)

func classifierPrompt() string {
	return strings.Join([]string{
		"Classify a parent's message into exactly one intent from this fixed",
		"set: cry, nutrition, milestones, caregiver, advice, wellbeing, help,",
		"emergency, unknown.",
		"",
		"Rules:",
		"1) emergency is for clinical red flags (breathing trouble, blue lips,",
		"   unresponsiveness, seizures, high fever in a young infant).",
		"2) Use unknown when no intent clearly fits; never invent a new value.",
		"3) Return JSON only: intent and a confidence from 0 to 1.",
	}, "\n")
}

type intentClassification struct {
	flow       domain.Flow
	confidence float64
}

type intentClassificationResponse struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// classifyIntent is the generative fallback for text the rule tables could
// not place. It commits to one entry of the fixed flow enumeration; the
// caller treats low-confidence results as unknown.
func (r *Router) classifyIntent(ctx context.Context, text string) (intentClassification, error) {
	raw, err := r.llm.Complete(ctx, domain.CompletionRequest{
		Model: r.model,
		Messages: []domain.ChatMessage{
			{Role: "system", Content: classifierPrompt()},
			{Role: "user", Content: text},
		},
		Temperature: 0,
		SchemaName:  intentSchemaName,
		Schema:      intentSchema,
	})
	if err != nil {
		return intentClassification{}, newError(ErrorUpstream, "classifier_error", err)
	}

	var parsed intentClassificationResponse
	if err := decodeStrict(raw, &parsed); err != nil {
		return intentClassification{}, newError(ErrorMalformedOutput, "classifier_malformed_output", err)
	}
	flow, ok := domain.ParseFlow(parsed.Intent)
	if !ok {
		return intentClassification{}, newError(ErrorMalformedOutput, "classifier_unknown_intent", nil)
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return intentClassification{}, newError(ErrorMalformedOutput, "classifier_confidence_out_of_range", nil)
	}
	if parsed.Confidence < minClassifierConfidence && flow != domain.FlowEmergency {
		flow = domain.FlowUnknown
	}
	return intentClassification{flow: flow, confidence: parsed.Confidence}, nil
}

// minClassifierConfidence gates rule-free classifications: below it the text
// stays unknown and the user gets the topic overview instead of a guess.
// Emergency is exempt; the safety bias runs the other way.
const minClassifierConfidence = 0.5
