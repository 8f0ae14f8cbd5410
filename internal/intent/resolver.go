// Package intent resolves the active flow and optional subtopic tag for an
// inbound message. Resolution is deterministic: rules are held in explicit
// ordered lists and evaluated first match wins. The generative fallback for
// unresolved text lives in the usecase layer; this package is pure.
package intent

import (
	"strings"

	"babygpt/internal/domain"
)

// Action is an explicit UI selection (menu button or chip), already parsed
// from its `flow:<flow>[:<tag>]` callback payload.
type Action struct {
	Flow domain.Flow
	Tag  domain.Tag
}

// Resolution is the outcome of intent resolution for one message.
type Resolution struct {
	Flow domain.Flow
	Tag  domain.Tag
}

// Resolver evaluates the ordered rule lists. Rule order is an invariant, not
// an accident of array layout: tests pin it.
type Resolver struct {
	rules        []rule
	subtopics    map[domain.Flow][]tagRule
	fallbackTags map[domain.Flow]domain.Tag
}

// NewResolver builds a resolver over the built-in rule tables.
func NewResolver() *Resolver {
	return &Resolver{
		rules:        topLevelRules,
		subtopics:    subtopicRules,
		fallbackTags: fallbackTags,
	}
}

// Resolve picks the flow and tag for text. First decisive step wins:
// explicit action, then the session's active flow, then the ordered
// top-level rules. Unmatched text resolves to FlowUnknown; the caller may
// then consult the generative classifier.
func (r *Resolver) Resolve(sess *domain.Session, text string, action *Action) Resolution {
	if action != nil && action.Flow != domain.FlowUnknown {
		return Resolution{Flow: action.Flow, Tag: action.Tag}
	}

	if sess != nil && sess.ActiveFlow != "" && sess.ActiveFlow != domain.FlowUnknown {
		return Resolution{Flow: sess.ActiveFlow, Tag: r.resolveTag(sess.ActiveFlow, text)}
	}

	for _, rule := range r.rules {
		if rule.match(text) {
			return Resolution{Flow: rule.flow, Tag: r.resolveTag(rule.flow, text)}
		}
	}
	return Resolution{Flow: domain.FlowUnknown}
}

// TagFor derives the subtopic tag for text within an already-chosen flow.
// Used when the flow came from outside the rule tables, e.g. the generative
// classifier.
func (r *Resolver) TagFor(flow domain.Flow, text string) domain.Tag {
	return r.resolveTag(flow, text)
}

// resolveTag tests the flow's ordered subtopic patterns; first match wins,
// otherwise the flow's fall-through tag (if any).
func (r *Resolver) resolveTag(flow domain.Flow, text string) domain.Tag {
	for _, tr := range r.subtopics[flow] {
		if tr.match(text) {
			return tr.tag
		}
	}
	return r.fallbackTags[flow]
}

// ParseAction parses a callback payload of the form `flow:<flow>[:<tag>]`.
// Payloads in other namespaces or naming unknown flows return (nil, false).
func ParseAction(payload string) (*Action, bool) {
	parts := strings.Split(payload, ":")
	if len(parts) < 2 || parts[0] != "flow" {
		return nil, false
	}
	flow, ok := domain.ParseFlow(parts[1])
	if !ok || flow == domain.FlowEmergency {
		return nil, false
	}
	action := &Action{Flow: flow}
	if len(parts) >= 3 {
		action.Tag = domain.Tag(parts[2])
	}
	return action, true
}
