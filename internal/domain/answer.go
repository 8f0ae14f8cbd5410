package domain

// CanonicalAnswer is an operator-authored, fixed response for a (flow, tag)
// pair, loaded at startup.
type CanonicalAnswer struct {
	Flow Flow
	Tag  Tag
	Text string
}

// GeneratedAnswer is a per-request response from the completion service with
// every well-formed URL found in it, in order of first appearance.
type GeneratedAnswer struct {
	Text           string
	ExtractedLinks []string
}

// Winner names which candidate an arbitration verdict selected.
type Winner string

const (
	WinnerCanonical Winner = "canonical"
	WinnerGenerated Winner = "generated"
)

// Verdict is the outcome of one arbitration call. Reason is informational
// only; the decision rule uses Winner and Confidence.
type Verdict struct {
	Winner     Winner  `json:"winner"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}
