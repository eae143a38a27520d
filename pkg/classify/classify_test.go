package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     Category
	}{
		{"factual capital", "What is the capital of France?", CategoryFactual},
		{"factual who", "Who is the president of Brazil?", CategoryFactual},
		{"factual count", "How many moons does Jupiter have?", CategoryFactual},
		{"instruction pancakes", "How do I make pancakes?", CategoryInstruction},
		{"instruction tutorial", "Give me a tutorial on Go modules", CategoryInstruction},
		{"opinion best", "What's the best programming language?", CategoryOpinion},
		{"opinion should", "Should I learn Rust?", CategoryOpinion},
		{"none", "Tell me a story", CategoryNone},
		{"empty", "", CategoryNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.question))
		})
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	assert.Equal(t, CategoryFactual, Classify("WHAT IS a goroutine?"))
}

func TestClassify_FirstGroupWins(t *testing.T) {
	// Contains both "what is" (factual) and "best" (opinion); factual is
	// tested first, so factual wins.
	assert.Equal(t, CategoryFactual, Classify("What is the best laptop?"))
}

func TestCategories_Order(t *testing.T) {
	assert.Equal(t, []Category{CategoryFactual, CategoryOpinion, CategoryInstruction}, Categories())
}
