package bedrock

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchingParen(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		open     int
		expected int
	}{
		{"simple", "f(a, b)", 1, 6},
		{"nested", "f(g(h(x)))", 1, 9},
		{"paren inside double quotes", `f("a ) b", c)`, 1, 12},
		{"paren inside single quotes", "f('a ( b', c)", 1, 12},
		{"escaped quote inside literal", `f("a \" ) b")`, 1, 12},
		{"unbalanced", "f(a, b", 1, -1},
		{"not an open paren", "f(a)", 0, -1},
		{"offset out of range", "f(a)", 99, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, matchingParen(tt.content, tt.open))
		})
	}
}

func TestCallSpan(t *testing.T) {
	t.Run("balanced call returns full span", func(t *testing.T) {
		content := `BedrockModel(model_id="amazon.nova-lite-v1:0", streaming=False) # trailing`
		span := callSpan(content, 12, 1000)
		assert.Equal(t, `(model_id="amazon.nova-lite-v1:0", streaming=False)`, span)
	})

	t.Run("unbalanced call is capped at limit", func(t *testing.T) {
		content := "f(" + strings.Repeat("x", 5000)
		span := callSpan(content, 1, 300)
		assert.Len(t, span, 300)
	})
}

// Deeply nested and unbalanced inputs must complete in linear time. The
// thresholds are generous so the test stays stable on slow CI machines while
// still catching any return to backtracking behaviour.
func TestMatchingParenAdversarialInputs(t *testing.T) {
	const n = 60

	t.Run("deep nesting", func(t *testing.T) {
		content := "BedrockModel" + strings.Repeat("(", n) + "model_id" + strings.Repeat(")", n)
		start := time.Now()
		got := matchingParen(content, len("BedrockModel"))
		require.Less(t, time.Since(start), time.Second)
		assert.Equal(t, len(content)-1, got)
	})

	t.Run("unbalanced open parens", func(t *testing.T) {
		content := "system_prompt=" + strings.Repeat("(", n) + strings.Repeat(`f"x{y}" `, n)
		start := time.Now()
		got := matchingParen(content, len("system_prompt="))
		require.Less(t, time.Since(start), time.Second)
		assert.Equal(t, -1, got)
	})

	t.Run("full analyze on adversarial file", func(t *testing.T) {
		content := "from strands.models import BedrockModel\n" +
			"m = BedrockModel" + strings.Repeat("(", n) + "\n" +
			"system_prompt = " + strings.Repeat("(", n) + "\n"
		d := New(nil)
		start := time.Now()
		d.Analyze(t.Context(), content, "adversarial.py")
		require.Less(t, time.Since(start), time.Second)
	})
}
