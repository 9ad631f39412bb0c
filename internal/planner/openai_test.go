package planner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepilot/pagepilot/pkg/models"
)

func TestDecodeActions(t *testing.T) {
	actions, err := decodeActions(`[
		{"type": "navigate", "params": {"url": "https://example.com"}},
		{"type": "wait", "params": {"duration_ms": 2000}},
		{"type": "get_page_source", "params": {}}
	]`)
	require.NoError(t, err)
	require.Len(t, actions, 3)
	assert.Equal(t, models.ActionNavigate, actions[0].Type)
	assert.Equal(t, "https://example.com", actions[0].URL)
	assert.Equal(t, int64(2000), actions[1].DurationMS)
}

func TestDecodeActionsWithSurroundingProse(t *testing.T) {
	actions, err := decodeActions(`Here is the plan you asked for:

[{"type": "screenshot", "params": {}}]

Let me know if you need anything else.`)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionScreenshot, actions[0].Type)
}

func TestDecodeActionsRepairsMalformedJSON(t *testing.T) {
	// Trailing comma, a classic small-model artifact.
	actions, err := decodeActions(`[{"type": "screenshot", "params": {}},]`)
	require.NoError(t, err)
	require.Len(t, actions, 1)
}

func TestDecodeActionsRejectsUnknownType(t *testing.T) {
	_, err := decodeActions(`[{"type": "hack_the_planet", "params": {}}]`)
	assert.Error(t, err)
}

func TestDecodeActionsRejectsUnknownParams(t *testing.T) {
	_, err := decodeActions(`[{"type": "click", "params": {"selector": "#ok", "force": true}}]`)
	assert.Error(t, err)
}

func TestDecodeActionsNoArray(t *testing.T) {
	_, err := decodeActions(`I cannot help with that.`)
	assert.Error(t, err)
}

func TestUserPromptIncludesSortedContext(t *testing.T) {
	prompt := userPrompt(Request{
		Task:      "log in",
		TargetURL: "https://example.com/login",
		Context:   map[string]string{"username": "tester", "locale": "en"},
	})

	assert.Contains(t, prompt, "Task: log in")
	assert.Contains(t, prompt, "Target URL: https://example.com/login")
	// Keys render in sorted order so prompts are reproducible.
	assert.Less(t, strings.Index(prompt, "locale"), strings.Index(prompt, "username"))
}
