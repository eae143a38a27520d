package persona

import "github.com/rayhan/aska/pkg/classify"

// Exemplar is a sample question/answer pair injected into the system
// prompt to steer model behavior for a detected question category.
type Exemplar struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// exampleBank maps question categories to few-shot exemplars, in the
// order they should be rendered. The bank is fixed at compile time.
var exampleBank = map[classify.Category][]Exemplar{
	classify.CategoryFactual: {
		{
			Question: "What is the capital of Japan?",
			Answer:   "The capital of Japan is Tokyo.",
		},
		{
			Question: "How many continents are there?",
			Answer:   "There are seven continents: Africa, Antarctica, Asia, Australia, Europe, North America, and South America.",
		},
	},
	classify.CategoryOpinion: {
		{
			Question: "What's the best way to learn a new language?",
			Answer:   "Opinions vary, but consistent daily practice combined with immersion is widely considered the most effective approach.",
		},
		{
			Question: "Should I use tabs or spaces?",
			Answer:   "This is a matter of preference and team convention; the most important thing is consistency within a codebase.",
		},
	},
	classify.CategoryInstruction: {
		{
			Question: "How do I boil an egg?",
			Answer:   "Place the egg in boiling water for 7-9 minutes depending on desired firmness, then transfer to cold water before peeling.",
		},
		{
			Question: "How to create a git branch?",
			Answer:   "Run `git checkout -b <branch-name>` to create and switch to a new branch in one step.",
		},
	},
}

// Examples returns the few-shot exemplars for a category, or nil when
// the bank has no entry for it.
func Examples(category classify.Category) []Exemplar {
	return exampleBank[category]
}

// ExampleCategories returns the categories that have exemplars, in
// classifier evaluation order.
func ExampleCategories() []classify.Category {
	out := make([]classify.Category, 0, len(exampleBank))
	for _, c := range classify.Categories() {
		if _, ok := exampleBank[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
