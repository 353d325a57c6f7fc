package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"alfredoptarigan/resume-screener/internal/models"
)

// IntentPayload is the evidence bundle handed to the generative model.
type IntentPayload struct {
	JobDescription string              `json:"job_description"`
	RuleFeatures   models.RuleFeatures `json:"rule_features"`
	RAGContext     string              `json:"rag_context"`
}

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildIntentPrompt creates the evidence-only role suitability prompt.
func (pb *PromptBuilder) BuildIntentPrompt(payload IntentPayload) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal intent payload: %w", err)
	}

	return fmt.Sprintf(`You are an HR technical screener.
Your goal is to judge **role suitability** based ONLY on explicit evidence in the resume.
Do NOT make analogies or guesses.

Input data:
%s

Follow these rules:
1. Read the job description literally. Identify its key technical requirements.
2. Look for direct evidence in the resume text or context.
   - Programming languages, frameworks, projects, or courses.
   - Publications or certifications relevant to the role.
3. If the role and resume belong to different domains (e.g., Data Science vs UI/UX Design),
   mark Role_Fit as "No".
4. Keep reasoning short, factual, and evidence-based.

Return STRICT JSON:
{
  "Role_Fit": "Yes" or "No",
  "Reasoning": "1-2 line factual justification",
  "Refined_Certifications": "comma-separated factual certifications/publications",
  "Recommended_Skills_To_Add": "comma-separated list of missing but relevant technical skills"
}`, string(data)), nil
}

// BuildPersonPrompt asks the model to act as a named entity recognizer for people.
func BuildPersonPrompt(text string) string {
	return fmt.Sprintf(`Extract the names of PERSON entities from the resume text below, in the order they appear.
Only include names that literally appear in the text. Do not include companies, schools or places.

Resume text:
%s

Return STRICT JSON:
{"persons": ["<full name>", "..."]}
Return {"persons": []} if there is no person name.`, text)
}

// extractFirstJSONObject returns the first balanced top-level JSON object in s,
// ignoring braces that appear inside string literals.
func extractFirstJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
