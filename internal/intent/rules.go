package intent

import (
	"regexp"

	"babygpt/internal/domain"
)

type rule struct {
	name  string
	match func(string) bool
	flow  domain.Flow
}

type tagRule struct {
	match func(string) bool
	tag   domain.Tag
}

func reMatch(pattern string) func(string) bool {
	re := regexp.MustCompile("(?i)" + pattern)
	return re.MatchString
}

// topLevelRules is the global, ordered dispatch table. Earlier entries
// outrank later ones; changing the order changes routing.
var topLevelRules = []rule{
	{name: "crying_sleep", match: reMatch(`cry|sleep|colic|night waking|won'?t sleep`), flow: domain.FlowCry},
	{name: "nutrition", match: reMatch(`solid|wean|milk|feed|recipe|diet|meal`), flow: domain.FlowNutrition},
	{name: "milestones", match: reMatch(`milestone|tummy|speech|development`), flow: domain.FlowMilestones},
	{name: "caregiving_find", match: reMatch(`infantcare|preschool|nanny|babysitter|daycare`), flow: domain.FlowCaregiver},
	{name: "caregiving_helper", match: reMatch(`helper|mdw|maid|work permit|permit`), flow: domain.FlowCaregiver},
	{name: "advice_conflict", match: reMatch(`conflicting|too many opinions|overload`), flow: domain.FlowAdvice},
	{name: "wellbeing", match: reMatch(`overwhelmed|anxious|tired|burnt\s?out`), flow: domain.FlowWellbeing},
	{name: "help", match: reMatch(`help|menu`), flow: domain.FlowHelp},
}

// subtopicRules are per-flow ordered tag patterns.
var subtopicRules = map[domain.Flow][]tagRule{
	domain.FlowCaregiver: {
		{match: reMatch(`helper|mdw|maid|permit`), tag: domain.TagHelper},
	},
	domain.FlowNutrition: {
		{match: reMatch(`milk|formula|breastfeed`), tag: domain.TagMilk},
		{match: reMatch(`solid|wean|puree`), tag: domain.TagSolids},
	},
}

// fallbackTags supplies the fall-through subtopic for flows that always need
// one (caregiving defaults to the find-a-centre track).
var fallbackTags = map[domain.Flow]domain.Tag{
	domain.FlowCaregiver: domain.TagFind,
}
