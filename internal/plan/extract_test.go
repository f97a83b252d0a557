package plan

import "testing"

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bare object",
			content: `{"a": 1}`,
			want:    `{"a": 1}`,
		},
		{
			name:    "surrounding whitespace",
			content: "  \n {\"a\": 1} \n",
			want:    `{"a": 1}`,
		},
		{
			name:    "fence with language tag",
			content: "```json\n{\"a\": 1}\n```",
			want:    `{"a": 1}`,
		},
		{
			name:    "fence without language tag",
			content: "```\n{\"a\": 1}\n```",
			want:    `{"a": 1}`,
		},
		{
			name:    "prose around object",
			content: `Sure! {"a": {"b": 2}} Done.`,
			want:    `{"a": {"b": 2}}`,
		},
		{
			name:    "unterminated fence falls back to braces",
			content: "```json\n{\"a\": 1}",
			want:    `{"a": 1}`,
		},
		{
			name:    "no object at all",
			content: "nothing here",
			want:    "nothing here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.content); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}
