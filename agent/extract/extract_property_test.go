package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// Property: Extract never panics and never returns an invalid payload,
// whatever bytes the model produced.
func TestProperty_Extract_NeverPanicsAlwaysValid(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		raw := rapid.String().Draw(rt, "raw")
		payloads := Extract(raw)
		require.LessOrEqual(rt, len(payloads), 1)
		for _, p := range payloads {
			require.True(rt, json.Valid(p.Value), "extracted payload must be valid JSON")
		}
	})
}

// Property: any serialized JSON object strict-parses to an equivalent value,
// and the same object surrounded by prose is recovered leniently.
func TestProperty_Extract_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		doc := rapid.MapOf(
			rapid.StringMatching(`[a-z_]{1,8}`),
			rapid.OneOf(
				rapid.Float64Range(-1e6, 1e6).AsAny(),
				rapid.Bool().AsAny(),
				rapid.StringMatching(`[ -~]{0,16}`).AsAny(),
			),
		).Draw(rt, "doc")

		serialized, err := json.Marshal(doc)
		require.NoError(rt, err)

		payloads := Extract(string(serialized))
		require.Len(rt, payloads, 1)
		require.True(rt, payloads[0].Strict)

		var back map[string]any
		require.NoError(rt, json.Unmarshal(payloads[0].Value, &back))
		require.Len(rt, back, len(doc))

		embedded := "Certainly, the request is: " + string(serialized) + " -- anything else?"
		payloads = Extract(embedded)
		require.Len(rt, payloads, 1)
		require.False(rt, payloads[0].Strict)
		require.JSONEq(rt, string(serialized), string(payloads[0].Value))
	})
}
