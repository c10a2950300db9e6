package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	assert := assert.New(t)

	prompt := BuildPrompt(Request{
		Title:    "Best neighborhoods in Mumbai?",
		Body:     "Looking at Bandra and Powai.",
		Keywords: []string{"mumbai"},
		Category: "india_specific",
	})
	assert.Contains(prompt, "Best neighborhoods in Mumbai?")
	assert.Contains(prompt, "Looking at Bandra and Powai.")
	assert.Contains(prompt, "mumbai")
	assert.Contains(prompt, "India")

	// unknown categories fall back to the general template
	general := BuildPrompt(Request{
		Title:    "hello",
		Body:     "world",
		Category: "does-not-exist",
	})
	assert.Contains(general, "hello")
	assert.Contains(general, "world")

	// empty body gets a placeholder so the prompt never reads truncated
	noBody := BuildPrompt(Request{
		Title:    "title only post",
		Category: "general",
	})
	assert.Contains(noBody, "No content provided")
}

func TestBuildPromptJoinsKeywords(t *testing.T) {
	prompt := BuildPrompt(Request{
		Title:    "career advice",
		Body:     "stuck in a rut",
		Keywords: []string{"advice", "career"},
		Category: "helpful_advice",
	})
	assert.Contains(t, prompt, "advice, career")
}
