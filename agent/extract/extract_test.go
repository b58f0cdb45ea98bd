package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_Strict(t *testing.T) {
	t.Run("bare object", func(t *testing.T) {
		payloads := Extract(`{"coords": [13.4, 52.5], "max_cloud": 20}`)
		require.Len(t, payloads, 1)
		assert.True(t, payloads[0].Strict)
		assert.JSONEq(t, `{"coords": [13.4, 52.5], "max_cloud": 20}`, string(payloads[0].Value))
	})

	t.Run("bare array", func(t *testing.T) {
		payloads := Extract(`[{"a":1},{"b":2}]`)
		require.Len(t, payloads, 1)
		assert.True(t, payloads[0].Strict)
	})

	t.Run("surrounding whitespace still strict", func(t *testing.T) {
		payloads := Extract("\n  {\"a\": 1}  \n")
		require.Len(t, payloads, 1)
		assert.True(t, payloads[0].Strict)
	})

	t.Run("scalar is not a document", func(t *testing.T) {
		assert.Empty(t, Extract(`42`))
		assert.Empty(t, Extract(`"just a string"`))
	})
}

func TestExtract_Lenient(t *testing.T) {
	t.Run("object embedded in prose", func(t *testing.T) {
		payloads := Extract(`Here you go: {"a":1}`)
		require.Len(t, payloads, 1)
		assert.False(t, payloads[0].Strict)
		assert.JSONEq(t, `{"a":1}`, string(payloads[0].Value))
	})

	t.Run("markdown fenced block", func(t *testing.T) {
		raw := "Sure, here is the search request:\n```json\n{\"start_date\": \"2024-01-01\", \"end_date\": \"2024-02-01\"}\n```\nLet me know if that works."
		payloads := Extract(raw)
		require.Len(t, payloads, 1)
		assert.False(t, payloads[0].Strict)
		assert.JSONEq(t, `{"start_date": "2024-01-01", "end_date": "2024-02-01"}`, string(payloads[0].Value))
	})

	t.Run("fence without language tag", func(t *testing.T) {
		payloads := Extract("```\n{\"x\": true}\n```")
		require.Len(t, payloads, 1)
		assert.False(t, payloads[0].Strict)
	})

	t.Run("nested braces", func(t *testing.T) {
		payloads := Extract(`prefix {"outer": {"inner": [1, 2]}} suffix`)
		require.Len(t, payloads, 1)
		assert.JSONEq(t, `{"outer": {"inner": [1, 2]}}`, string(payloads[0].Value))
	})

	t.Run("braces inside string literals are skipped", func(t *testing.T) {
		payloads := Extract(`note {"msg": "left { and right }", "n": 1} done`)
		require.Len(t, payloads, 1)
		assert.JSONEq(t, `{"msg": "left { and right }", "n": 1}`, string(payloads[0].Value))
	})

	t.Run("first balanced object wins", func(t *testing.T) {
		payloads := Extract(`{"first": 1} and later {"second": 2}`)
		require.Len(t, payloads, 1)
		assert.JSONEq(t, `{"first": 1}`, string(payloads[0].Value))
	})
}

func TestExtract_NoPayload(t *testing.T) {
	cases := map[string]string{
		"empty":              "",
		"whitespace only":    "   \n\t ",
		"plain prose":        "I need a location before I can search for imagery.",
		"unbalanced braces":  `{"a": 1`,
		"invalid json":       `{"a": }`,
		"fence with garbage": "```json\nnot json\n```",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, Extract(raw))
		})
	}
}

func TestExtract_RoundTrip(t *testing.T) {
	doc := map[string]any{
		"response":                   "Found 3 matching products.",
		"needsLocationClarification": false,
		"suggestedProducts": []map[string]any{
			{"name": "SkySat Archive", "resolution": "50cm", "category": "archive"},
		},
	}
	serialized, err := json.Marshal(doc)
	require.NoError(t, err)

	payloads := Extract(string(serialized))
	require.Len(t, payloads, 1)
	assert.True(t, payloads[0].Strict)

	var back map[string]any
	require.NoError(t, json.Unmarshal(payloads[0].Value, &back))
	assert.Equal(t, doc["response"], back["response"])

	// Same document embedded in prose recovers leniently.
	payloads = Extract("Result below.\n" + string(serialized) + "\nDone.")
	require.Len(t, payloads, 1)
	assert.False(t, payloads[0].Strict)
	assert.JSONEq(t, string(serialized), string(payloads[0].Value))
}
