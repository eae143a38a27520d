package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayhan/aska/pkg/classify"
	"github.com/rayhan/aska/pkg/persona"
	"github.com/rayhan/aska/pkg/session"
)

func newComposer() (*Composer, *persona.Catalog) {
	catalog := persona.NewCatalog()
	return NewComposer(catalog), catalog
}

func TestCompose_NoHistoryNoCategory(t *testing.T) {
	c, catalog := newComposer()

	p := c.Compose("concise", classify.CategoryNone, nil, "What time is it?")

	assert.Equal(t, catalog.Resolve("concise"), p.System)
	assert.Equal(t, "What time is it?", p.Human)
}

func TestCompose_UnknownPersonaFallsBack(t *testing.T) {
	c, catalog := newComposer()

	p := c.Compose("no-such-persona", classify.CategoryNone, nil, "Hello")

	assert.Equal(t, catalog.Resolve("default"), p.System)
}

func TestCompose_CategoryAppendsExamples(t *testing.T) {
	c, catalog := newComposer()

	p := c.Compose("default", classify.CategoryFactual, nil, "What is the capital of France?")

	require.True(t, strings.HasPrefix(p.System, catalog.Resolve("default")))
	assert.Contains(t, p.System, exampleHeader)

	// Exemplars are rendered in stored order.
	exemplars := persona.Examples(classify.CategoryFactual)
	require.NotEmpty(t, exemplars)
	lastIdx := -1
	for _, ex := range exemplars {
		idx := strings.Index(p.System, "Question: "+ex.Question)
		require.GreaterOrEqual(t, idx, 0)
		assert.Greater(t, idx, lastIdx)
		lastIdx = idx
		assert.Contains(t, p.System, "Answer: "+ex.Answer)
	}

	// The question itself is untouched by the example block.
	assert.Equal(t, "What is the capital of France?", p.Human)
}

func TestCompose_HistoryBuildsTranscript(t *testing.T) {
	c, _ := newComposer()

	history := []session.Turn{
		{Question: "first question", Answer: "first answer", Timestamp: time.Now()},
		{Question: "second question", Answer: "second answer", Timestamp: time.Now()},
	}

	p := c.Compose("default", classify.CategoryNone, history, "third question")

	require.True(t, strings.HasPrefix(p.Human, historyHeader))
	assert.Contains(t, p.Human, "Human: first question\nAI: first answer\n")
	assert.Contains(t, p.Human, "Human: second question\nAI: second answer\n")
	assert.True(t, strings.HasSuffix(p.Human, "Human: third question"))

	// Chronological order: first turn before second, both before the
	// new question.
	firstIdx := strings.Index(p.Human, "first question")
	secondIdx := strings.Index(p.Human, "second question")
	thirdIdx := strings.Index(p.Human, "third question")
	assert.Less(t, firstIdx, secondIdx)
	assert.Less(t, secondIdx, thirdIdx)
}

func TestCompose_DoesNotMutateHistory(t *testing.T) {
	c, _ := newComposer()

	history := []session.Turn{{Question: "q", Answer: "a"}}
	c.Compose("default", classify.CategoryFactual, history, "new q")

	assert.Equal(t, "q", history[0].Question)
	assert.Equal(t, "a", history[0].Answer)
}
