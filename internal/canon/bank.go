// Package canon holds the operator-authored content: canonical answers,
// reference links, composer hints, flow prompts and fixed reply texts.
// Everything here is immutable after startup.
package canon

import "babygpt/internal/domain"

// Bank is the static flow → tag → answer mapping plus per-flow reference
// links. Lookups have no side effects; absence is a normal outcome, most
// (flow, tag) pairs intentionally have no canonical answer.
type Bank struct {
	answers map[domain.Flow]map[domain.Tag]string
	links   map[domain.Flow]map[domain.Tag][]string
	hints   map[domain.Flow]string
	prompts map[domain.Flow]string
}

// NewBank loads the built-in Singapore content set.
func NewBank() *Bank {
	return &Bank{
		answers: canonicalAnswers,
		links:   referenceLinks,
		hints:   composeHints,
		prompts: flowPrompts,
	}
}

// Lookup returns the canonical answer for (flow, tag), if one exists.
func (b *Bank) Lookup(flow domain.Flow, tag domain.Tag) (domain.CanonicalAnswer, bool) {
	byTag, ok := b.answers[flow]
	if !ok {
		return domain.CanonicalAnswer{}, false
	}
	text, ok := byTag[tag]
	if !ok {
		return domain.CanonicalAnswer{}, false
	}
	return domain.CanonicalAnswer{Flow: flow, Tag: tag, Text: text}, true
}

// Links returns the canonical reference list for a flow, preferring a
// tag-specific list when one exists.
func (b *Bank) Links(flow domain.Flow, tag domain.Tag) []string {
	byTag, ok := b.links[flow]
	if !ok {
		return nil
	}
	if tag != domain.TagNone {
		if tagged, ok := byTag[tag]; ok {
			return tagged
		}
	}
	return byTag[domain.TagNone]
}

// Hint returns the base steps fed to the composer as context for a flow.
func (b *Bank) Hint(flow domain.Flow) string {
	return b.hints[flow]
}

// Prompt returns the context prompt sent after a flow is selected from the
// menu.
func (b *Bank) Prompt(flow domain.Flow) string {
	return b.prompts[flow]
}

var canonicalAnswers = map[domain.Flow]map[domain.Tag]string{
	domain.FlowCaregiver: {
		domain.TagFind: `Steps to find infantcare (SG):
1) Use ECDA/LifeSG to shortlist by location, hours, fees.
2) Visit 2–3 centres: hygiene, caregiver interaction, routine.
3) Join waitlist; ask about subsidies & transition.`,
		domain.TagHelper: `Hire a helper (MDW) in SG:
1) Check MOM eligibility; agency vs direct-hire.
2) Interview; verify experience; define duties in writing.
3) Insurance; IPA → arrival → permit & orientation.`,
	},
	domain.FlowNutrition: {
		domain.TagMilk: `Milk amounts by age (SG guidance):
0–3m: about 60–120ml per feed, 7–8 feeds a day, on demand.
4–6m: about 120–180ml per feed, 5–6 feeds a day.
6–12m: milk stays the main drink while solids ramp up; follow baby's cues.
Watch wet diapers and steady weight gain rather than exact volumes.`,
	},
}

var referenceLinks = map[domain.Flow]map[domain.Tag][]string{
	domain.FlowCry: {
		domain.TagNone: {
			"HealthHub (Sleep Basics): https://www.healthhub.sg/live-healthy/1637/baby_sleep_basics",
			"KKH Baby Sleep Guide: https://www.kkh.com.sg/healtharticles/baby-sleep-basics",
		},
	},
	domain.FlowNutrition: {
		domain.TagNone: {
			"HealthHub (Healthy Diet 0–3): https://www.healthhub.sg/programmes/parent-hub/baby-toddler/childhood-healthy-diet",
			"HPB Recipes: https://www.healthhub.sg/programmes/parent-hub/recipes",
		},
	},
	domain.FlowMilestones: {
		domain.TagNone: {
			"KKH Developmental Milestones: https://www.kkh.com.sg/healtharticles/developmental-milestones",
		},
	},
	domain.FlowCaregiver: {
		domain.TagFind: {
			"ECDA Preschool / Infantcare Search: https://www.ecda.gov.sg/parents/Pages/Preschool-Search.aspx",
			"LifeSG Preschool Services: https://www.life.gov.sg/services/parenting/preschool",
		},
		domain.TagHelper: {
			"MOM Work Permit (MDW): https://www.mom.gov.sg/passes-and-permits/work-permit-for-migrant-domestic-worker",
			"Apply for MDW Permit: https://www.mom.gov.sg/passes-and-permits/work-permit-for-migrant-domestic-worker/apply",
		},
	},
	domain.FlowAdvice: {
		domain.TagNone: {
			"Families for Life (Parenting): https://familiesforlife.sg/parenting",
			"HealthHub Parenting Tips: https://www.healthhub.sg/live-healthy/1144/mental_health_tips_for_parents",
		},
	},
	domain.FlowWellbeing: {
		domain.TagNone: {
			"IMH Helpline (24h): 6389 2222",
			"SOS (Samaritans of SG): 1767",
		},
	},
}

var composeHints = map[domain.Flow]string{
	domain.FlowNutrition:  "0–6m: milk on demand; 6–12m: start solids (iron-rich daily, one new food at a time); >12m: family meals; avoid choking.",
	domain.FlowCry:        "Soothing: feed → burp 5–10 min → swaddle + white noise → dim lights. Keep age-appropriate wake windows.",
	domain.FlowAdvice:     "Resolver: 1) Prefer HealthHub guidance 2) Pick one approach that fits family 3) Try for 3–5 days, then review.",
	domain.FlowMilestones: "Steady progress: motor (tummy time), language (babble→words), social (smiles→joint attention). See GP if worried.",
	domain.FlowWellbeing:  "2–5 min reset: box breathing 4-4-4-4; choose one tiny win for today; ask for help when needed.",
}

var flowPrompts = map[domain.Flow]string{
	domain.FlowCry:       "Tell me the crying/sleep details (age + when it happens).",
	domain.FlowNutrition: "Ask about feeding (milk amounts, starting solids, meal ideas).",
	domain.FlowCaregiver: "What caregiver do you need? (infantcare, helper/MDW, nanny/babysitter) and area?",
	domain.FlowAdvice:    "What conflicting advice are you getting? I'll help you pick a plan.",
}
