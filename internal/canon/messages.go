package canon

import "babygpt/internal/domain"

// Fixed reply texts. The safety and maintenance messages are sent verbatim;
// no generative output is ever mixed into them.
const (
	EmergencyReply = "⚠️ This may be urgent. Please call 995 or go to the nearest A&E now."

	OffLimitsReply = "Sorry, I can't assist with that topic. If you feel unsafe, call SOS (1767) or IMH (6389 2222)."

	MaintenanceReply = "The assistant is temporarily unavailable for maintenance. Please try again later."

	Disclaimer = "_Disclaimer: General info only. For emergencies, call 995._"

	MoreInfoHeader = "*More information:*"

	HelpReply = "I can help with sleep/crying, feeding & nutrition, milestones, caregiving and conflicting advice. Pick a topic below or just describe what's going on. 👇"
)

// IntroReply is the /start greeting.
const IntroReply = `👶 *Hi, I'm BabyGPT (Singapore Edition)!*
Your friendly companion for first-time parents of babies aged 0–3.

I can help with:
1️⃣ *Health & Development* — sleep/crying, feeding & nutrition, milestones
2️⃣ *Caregiving Support* — infantcare & nanny/helper info, and resolving conflicting advice
3️⃣ *Parental Wellbeing* — gentle pointers for self-care

I'm not a medical professional, but I'll summarise steps and include trusted SG resources like HealthHub, ECDA, MOM.

*What would you like help with today?* 👇`

// MenuKeyboard is the main topic selector attached to most replies.
func MenuKeyboard() *domain.InlineKeyboard {
	return &domain.InlineKeyboard{Rows: [][]domain.Button{
		{{Text: "🍼 Crying / Sleep", Data: "flow:cry"}},
		{{Text: "🥣 Nutrition", Data: "flow:nutrition"}},
		{{Text: "👩‍🍼 Caregiving", Data: "flow:caregiver"}},
		{{Text: "🧭 Conflicting Advice", Data: "flow:advice"}},
	}}
}

// CaregiverKeyboard offers the caregiving sub-choices after the caregiver
// flow is selected.
func CaregiverKeyboard() *domain.InlineKeyboard {
	return &domain.InlineKeyboard{Rows: [][]domain.Button{
		{{Text: "🏫 Find infantcare", Data: "flow:caregiver:find"}},
		{{Text: "🧹 Helper / MDW", Data: "flow:caregiver:helper"}},
	}}
}

// KeyboardFor returns the chip set shown after a flow selection.
func KeyboardFor(flow domain.Flow) *domain.InlineKeyboard {
	if flow == domain.FlowCaregiver {
		return CaregiverKeyboard()
	}
	return MenuKeyboard()
}
