// Package classify maps raw questions to a coarse question category
// using an ordered keyword rule table. The classifier steers few-shot
// exemplar selection during prompt composition.
package classify

import "strings"

// Category is a detected question category. The zero value means no
// category was detected.
type Category string

const (
	// CategoryNone means no rule matched.
	CategoryNone Category = ""
	// CategoryFactual covers who/what/when/where questions.
	CategoryFactual Category = "factual"
	// CategoryOpinion covers preference and judgement questions.
	CategoryOpinion Category = "opinion"
	// CategoryInstruction covers how-to and step-by-step questions.
	CategoryInstruction Category = "instruction"
)

// rule pairs a category with the keywords that select it.
type rule struct {
	category Category
	keywords []string
}

// rules is evaluated in order; the first matching group wins even when a
// question contains keywords from several groups. The ordering is part of
// the classification contract.
var rules = []rule{
	{CategoryFactual, []string{"what is", "who is", "when did", "where is", "how many"}},
	{CategoryOpinion, []string{"what do you think", "opinion", "best", "worst", "should i", "better"}},
	{CategoryInstruction, []string{"how do i", "how to", "steps", "guide", "tutorial", "instructions"}},
}

// Classify returns the category of a question, or CategoryNone when no
// keyword group matches. It is a pure function of its input.
func Classify(question string) Category {
	lowered := strings.ToLower(question)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lowered, kw) {
				return r.category
			}
		}
	}
	return CategoryNone
}

// Categories returns every category the rule table can produce, in
// evaluation order.
func Categories() []Category {
	out := make([]Category, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.category)
	}
	return out
}
