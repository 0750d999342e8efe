package prompt

import (
	"strings"

	"github.com/relaybroker/broker/pkg/learning"
	"github.com/relaybroker/broker/pkg/persona"
)

// Compose builds the enriched prompt sent to the external reasoner
// (§4.5 step 5): a header naming the persona, the persona's system
// prompt, an optional priority-skill hint, a compact bullet rendering of
// relevant lessons, then the original payload. The format is fixed so
// tests can assert on it exactly.
func Compose(p *persona.Persona, lessons []learning.Lesson, payload string) string {
	var b strings.Builder

	b.WriteString("Persona: ")
	b.WriteString(p.ID)
	b.WriteString("\n\n")

	if p.SystemPrompt != "" {
		b.WriteString(p.SystemPrompt)
		b.WriteString("\n\n")
	}

	if p.PrioritySkill != "" {
		b.WriteString("Preferred skill: ")
		b.WriteString(p.PrioritySkill)
		b.WriteString("\n\n")
	}

	if len(lessons) > 0 {
		b.WriteString("Relevant lessons:\n")
		for _, l := range lessons {
			b.WriteString("- ")
			b.WriteString(lessonBullet(l))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(payload)

	return b.String()
}

func lessonBullet(l learning.Lesson) string {
	if l.Solution != "" {
		return l.LessonSummary + " (solution: " + l.Solution + ")"
	}
	return l.LessonSummary
}
