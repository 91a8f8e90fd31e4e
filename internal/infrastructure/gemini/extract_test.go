package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodlens/backend/internal/domain"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "fenced json block",
			input: "```json\n{\"a\":1}\n```",
			want:  `{"a":1}`,
		},
		{
			name:  "fenced block with prose around it",
			input: "Here is the product:\n```json\n{\"product_name\": \"Acme Lipstick\"}\n```\nLet me know if you need more.",
			want:  `{"product_name": "Acme Lipstick"}`,
		},
		{
			name:  "uppercase fence tag",
			input: "```JSON\n{\"a\":2}\n```",
			want:  `{"a":2}`,
		},
		{
			name:  "bare json",
			input: "  {\"a\":1, \"b\":[1,2]}\n",
			want:  `{"a":1, "b":[1,2]}`,
		},
		{
			name:  "json surrounded by noise",
			input: "noise {\"a\":1} trailing",
			want:  `{"a":1}`,
		},
		{
			name:  "nested braces",
			input: "Result: {\"a\":{\"b\":{\"c\":3}}} done",
			want:  `{"a":{"b":{"c":3}}}`,
		},
		{
			name:  "broken fence falls through to brace span",
			input: "```json\nnot really json\n```\nactually: {\"a\":5}",
			want:  `{"a":5}`,
		},
		{
			name:  "unlabelled fence",
			input: "```\n{\"a\":1}\n```",
			want:  `{"a":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestExtractJSON_Failures(t *testing.T) {
	inputs := map[string]string{
		"plain text":        "not json at all",
		"empty":             "",
		"array only":        "[1,2,3]",
		"unbalanced":        "{\"a\": 1",
		"reversed braces":   "} nothing here {",
		"malformed object":  "prefix {\"a\": } suffix",
		"fenced non-object": "```json\n\"hello\"\n```",
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			got, err := ExtractJSON(input)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, domain.ErrExtraction)
		})
	}
}
