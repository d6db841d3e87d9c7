package emergency

import (
	"regexp"
	"strings"

	"github.com/themobileprof/symptomcheck/internal/lexicon"
)

// CallToAction closes every escalation message.
const CallToAction = "CALL EMERGENCY SERVICES NOW: dial your local emergency number (for example 911, 999 or 112), or have someone near you call for you."

// Disclaimer follows the call to action.
const Disclaimer = "This assessment tool cannot replace emergency medical services. If you are experiencing these symptoms, stop using this app and get emergency help now."

// Signal is the escalation produced when a critical symptom is detected.
// Once produced it takes precedence over every other result.
type Signal struct {
	Symptoms []string `json:"symptoms"`
	Labels   []string `json:"labels"`
	Text     string   `json:"text"`
}

type critical struct {
	id       string
	label    string
	guidance string
}

// criticalSymptoms is the fixed escalation order.
var criticalSymptoms = []critical{
	{
		id:    "severe_chest_pain",
		label: "Severe chest pain (possible heart attack)",
		guidance: "CHEST PAIN EMERGENCY: this could be a heart attack.\n" +
			"While waiting for help:\n" +
			"- Sit down and try to stay calm\n" +
			"- Chew an aspirin if you are not allergic to it\n" +
			"- Loosen tight clothing\n" +
			"- If you have prescribed nitroglycerin, take it",
	},
	{
		id:    "severe_breathing",
		label: "Severe breathing difficulty",
		guidance: "BREATHING EMERGENCY: severe breathing difficulty can be life-threatening.\n" +
			"While waiting for help:\n" +
			"- Sit upright\n" +
			"- Try to stay calm and breathe slowly\n" +
			"- Use a rescue inhaler if you have one",
	},
	{
		id:       "unconsciousness",
		label:    "Loss of consciousness",
		guidance: "CONSCIOUSNESS EMERGENCY: if someone is unconscious or unresponsive, get help immediately. If they are breathing, place them on their side.",
	},
	{
		id:    "severe_bleeding",
		label: "Severe bleeding",
		guidance: "BLEEDING EMERGENCY:\n" +
			"While waiting for help:\n" +
			"- Apply firm, direct pressure to the wound\n" +
			"- Raise the injured area if possible\n" +
			"- Do not remove embedded objects",
	},
	{
		id:    "stroke_symptoms",
		label: "Possible stroke",
		guidance: "POSSIBLE STROKE: remember F.A.S.T.\n" +
			"- Face drooping\n" +
			"- Arm weakness\n" +
			"- Speech difficulty\n" +
			"- Time to call emergency services. Note when the symptoms started.",
	},
	{
		id:    "allergic_reaction",
		label: "Severe allergic reaction",
		guidance: "ALLERGIC REACTION EMERGENCY:\n" +
			"While waiting for help:\n" +
			"- Use an epinephrine auto-injector if available\n" +
			"- Remove or avoid the allergen\n" +
			"- Lie flat with legs raised unless breathing is easier sitting up",
	},
	{
		id:    "vomiting_blood",
		label: "Vomiting blood",
	},
	{
		id:    "bloody_stool",
		label: "Blood in stool",
	},
	{
		id:       "severe_headache",
		label:    "Sudden severe headache",
		guidance: "SEVERE HEADACHE: if this is the worst headache of your life or it came on suddenly, it could be a serious condition such as bleeding in the brain.",
	},
	{
		id:       "severe_abdominal_pain",
		label:    "Severe abdominal pain",
		guidance: "SEVERE ABDOMINAL PAIN: do not eat or drink anything and do not take pain medication until you have been assessed.",
	},
}

// internalBleedingGuidance is shared by vomiting_blood and bloody_stool.
const internalBleedingGuidance = "INTERNAL BLEEDING: blood in vomit or stool can mean serious internal bleeding."

// Gate detects critical symptoms and builds the escalation message.
// It is immutable and safe for concurrent use.
type Gate struct {
	compound []lexicon.CompoundRule
}

// NewGate creates an emergency gate that also applies the lexicon's compound
// phrase rules to the raw text.
func NewGate(compound []lexicon.CompoundRule) *Gate {
	return &Gate{compound: compound}
}

// Check returns a Signal listing every triggered critical symptom, or nil.
func (g *Gate) Check(extracted []string, text string) *Signal {
	present := make(map[string]bool, len(extracted))
	for _, id := range extracted {
		present[id] = true
	}

	triggered := make(map[string]bool)
	for _, c := range criticalSymptoms {
		if present[c.id] {
			triggered[c.id] = true
		}
	}

	for _, rule := range g.compound {
		if triggered[rule.Triggers] {
			continue
		}
		if len(rule.Requires) > 0 && !anyPresent(present, rule.Requires) {
			continue
		}
		if matchesAny(text, rule.Phrases) {
			triggered[rule.Triggers] = true
		}
	}

	if len(triggered) == 0 {
		return nil
	}

	signal := &Signal{}
	for _, c := range criticalSymptoms {
		if triggered[c.id] {
			signal.Symptoms = append(signal.Symptoms, c.id)
			signal.Labels = append(signal.Labels, c.label)
		}
	}
	signal.Text = render(triggered)
	return signal
}

// Unscreened is the escalation used when the screening itself failed. The
// gate fails closed: a message it could not check is treated as urgent.
func Unscreened() *Signal {
	return &Signal{
		Symptoms: []string{},
		Labels:   []string{"Emergency screening could not be completed"},
		Text: "EMERGENCY CHECK UNAVAILABLE\n\n" +
			"We could not check your message for emergency warning signs. If you have chest pain, " +
			"trouble breathing, fainting, heavy bleeding or signs of a stroke, get help now.\n\n" +
			CallToAction + "\n\n" + Disclaimer,
	}
}

// IsCritical reports whether id is one of the escalation symptoms.
func IsCritical(id string) bool {
	for _, c := range criticalSymptoms {
		if c.id == id {
			return true
		}
	}
	return false
}

func render(triggered map[string]bool) string {
	var b strings.Builder
	b.WriteString("EMERGENCY ALERT\n\n")
	b.WriteString("Based on what you describe, this could be a medical emergency that needs IMMEDIATE attention.\n\n")

	b.WriteString("Warning signs detected:\n")
	for _, c := range criticalSymptoms {
		if triggered[c.id] {
			b.WriteString("- " + c.label + "\n")
		}
	}
	b.WriteString("\n")

	internalDone := false
	for _, c := range criticalSymptoms {
		if !triggered[c.id] {
			continue
		}
		guidance := c.guidance
		if c.id == "vomiting_blood" || c.id == "bloody_stool" {
			if internalDone {
				continue
			}
			internalDone = true
			guidance = internalBleedingGuidance
		}
		b.WriteString(guidance)
		b.WriteString("\n\n")
	}

	b.WriteString(CallToAction)
	b.WriteString("\n\n")
	b.WriteString("DO NOT DELAY: these symptoms need immediate professional medical evaluation. This is not a time for home remedies or waiting.\n\n")
	b.WriteString(Disclaimer)
	return b.String()
}

func anyPresent(present map[string]bool, ids []string) bool {
	for _, id := range ids {
		if present[id] {
			return true
		}
	}
	return false
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
