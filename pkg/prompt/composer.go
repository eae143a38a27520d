// Package prompt builds the exact system and user content sent to the
// model for one request: persona system prompt, optional few-shot
// exemplar block, and a transcript of the session's prior turns.
package prompt

import (
	"fmt"
	"strings"

	"github.com/rayhan/aska/pkg/classify"
	"github.com/rayhan/aska/pkg/persona"
	"github.com/rayhan/aska/pkg/session"
)

const (
	exampleHeader = "Here are some example exchanges for this kind of question:"
	historyHeader = "Previous conversation:"
)

// Prompt is the composed input for one model call.
type Prompt struct {
	System string
	Human  string
}

// Composer renders prompts from the persona catalog and example bank.
// Composing is a pure projection: it never mutates the catalog, the
// bank, or the history it is given.
type Composer struct {
	catalog *persona.Catalog
}

// NewComposer creates a composer over a persona catalog.
func NewComposer(catalog *persona.Catalog) *Composer {
	return &Composer{catalog: catalog}
}

// Compose builds the prompt for a question. Unknown persona keys fall
// back to the default persona; an empty category skips the exemplar
// block; an empty history leaves the question verbatim.
func (c *Composer) Compose(personaKey string, category classify.Category, history []session.Turn, question string) Prompt {
	system := c.catalog.Resolve(personaKey)

	if category != classify.CategoryNone {
		if exemplars := persona.Examples(category); len(exemplars) > 0 {
			var b strings.Builder
			b.WriteString(system)
			b.WriteString("\n\n")
			b.WriteString(exampleHeader)
			for _, ex := range exemplars {
				fmt.Fprintf(&b, "\nQuestion: %s\nAnswer: %s", ex.Question, ex.Answer)
			}
			system = b.String()
		}
	}

	human := question
	if len(history) > 0 {
		var b strings.Builder
		b.WriteString(historyHeader)
		b.WriteString("\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "Human: %s\nAI: %s\n", turn.Question, turn.Answer)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "Human: %s", question)
		human = b.String()
	}

	return Prompt{System: system, Human: human}
}
