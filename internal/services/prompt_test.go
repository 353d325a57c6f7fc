package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resume-screener/internal/models"
)

func TestExtractFirstJSONObject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect string
		ok     bool
	}{
		{name: "plain object", input: `{"a":1}`, expect: `{"a":1}`, ok: true},
		{name: "surrounding prose", input: "Sure! {\"a\":{\"b\":2}} Hope this helps {\"c\":3}", expect: `{"a":{"b":2}}`, ok: true},
		{name: "braces inside strings", input: `{"r":"uses } and { freely","q":"esc \" }"}`, expect: `{"r":"uses } and { freely","q":"esc \" }"}`, ok: true},
		{name: "unbalanced", input: `{"a": {"b": 1}`, ok: false},
		{name: "no object", input: "nothing here", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := extractFirstJSONObject(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expect, got)
			}
		})
	}
}

func TestBuildIntentPrompt(t *testing.T) {
	pb := NewPromptBuilder()
	prompt, err := pb.BuildIntentPrompt(IntentPayload{
		JobDescription: "Data scientist with Python",
		RuleFeatures: models.RuleFeatures{
			MatchingSkills:  "python, sql",
			CoveragePercent: 66.7,
			BaseAssessment:  models.AssessmentModerate,
		},
		RAGContext: "aws certified",
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, `"job_description": "Data scientist with Python"`)
	assert.Contains(t, prompt, `"skills_coverage_%": 66.7`)
	assert.Contains(t, prompt, `"rag_context": "aws certified"`)
	assert.Contains(t, prompt, "ONLY on explicit evidence")
	for _, key := range []string{"Role_Fit", "Reasoning", "Refined_Certifications", "Recommended_Skills_To_Add"} {
		assert.Contains(t, prompt, key)
	}
}
