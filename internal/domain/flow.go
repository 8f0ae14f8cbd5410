package domain

// Flow is a top-level conversation topic the router can be in.
type Flow string

const (
	FlowCry        Flow = "cry"
	FlowNutrition  Flow = "nutrition"
	FlowMilestones Flow = "milestones"
	FlowCaregiver  Flow = "caregiver"
	FlowAdvice     Flow = "advice"
	FlowWellbeing  Flow = "wellbeing"
	FlowHelp       Flow = "help"
	FlowUnknown    Flow = "unknown"

	// FlowEmergency is produced only by the generative intent classifier;
	// it is never stored in a session.
	FlowEmergency Flow = "emergency"
)

// Flows lists every flow a session may carry, in menu order.
var Flows = []Flow{
	FlowCry,
	FlowNutrition,
	FlowMilestones,
	FlowCaregiver,
	FlowAdvice,
	FlowWellbeing,
	FlowHelp,
	FlowUnknown,
}

// ParseFlow maps a string onto the flow catalog. Unrecognized values map to
// FlowUnknown with ok=false.
func ParseFlow(s string) (Flow, bool) {
	for _, f := range Flows {
		if string(f) == s {
			return f, true
		}
	}
	if s == string(FlowEmergency) {
		return FlowEmergency, true
	}
	return FlowUnknown, false
}

// Tag identifies a canonical answer variant within a flow.
type Tag string

const (
	TagNone   Tag = ""
	TagFind   Tag = "find"
	TagHelper Tag = "helper"
	TagMilk   Tag = "milk"
	TagSolids Tag = "solids"
)
