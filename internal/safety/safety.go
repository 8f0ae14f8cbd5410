// Package safety classifies inbound text against fixed red-flag patterns.
// It runs before any other resolution step; a match short-circuits the
// pipeline so no generative call is ever made for flagged content.
package safety

import "regexp"

// Classification is the outcome of screening one inbound message.
type Classification int

const (
	None Classification = iota
	Emergency
	OffLimits
)

var (
	emergencyRe = regexp.MustCompile(`(?i)(blue lips|not ?breathing|unresponsive|seizure|stiff neck|bulging fontanelle|fever\s?(?:40|4[01])|difficulty breathing)`)
	offLimitsRe = regexp.MustCompile(`(?i)(self[- ]harm|suicide|sexual|violence|illegal|loan|money lending)`)
)

// Classify screens text for clinical red flags and off-limits topics.
// Emergency takes precedence when both match. Read-only, no side effects.
func Classify(text string) Classification {
	if emergencyRe.MatchString(text) {
		return Emergency
	}
	if offLimitsRe.MatchString(text) {
		return OffLimits
	}
	return None
}
