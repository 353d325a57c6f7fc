package models

import (
	"strings"
	"time"
)

const (
	MatchYes = "YES"
	MatchNo  = "NO"
)

// Qualitative buckets produced by the rule stage of the intent reasoner.
const (
	AssessmentStrong   = "Strong"
	AssessmentModerate = "Moderate"
	AssessmentWeak     = "Weak"
)

// JobRequest is immutable for the duration of one evaluation run.
type JobRequest struct {
	JobDescription string
	RequiredSkills []string
}

// NewJobRequest trims and lower-cases the skills, dropping empty and duplicate entries
// while keeping the order they were supplied in.
func NewJobRequest(jobDescription string, skills []string) JobRequest {
	seen := make(map[string]struct{}, len(skills))
	cleaned := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		cleaned = append(cleaned, s)
	}

	return JobRequest{
		JobDescription: jobDescription,
		RequiredSkills: cleaned,
	}
}

// ParseSkillList splits a comma separated skill list as typed by a recruiter.
func ParseSkillList(raw string) []string {
	var skills []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.ToLower(strings.TrimSpace(part)); s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}

type SkillMatchResult struct {
	Matched  []string
	Coverage float64
}

// EntityBlock always carries all three fields, empty when nothing was found.
type EntityBlock struct {
	CertificatesFound string `json:"certificates_found"`
	AchievementsFound string `json:"achievements_found"`
	CompetitionsWon   string `json:"competitions_won"`
}

type SimilarityScores struct {
	BiEncoderPercent    float64
	CrossEncoderPercent float64
}

// RuleFeatures is the deterministic half of an intent verdict.
type RuleFeatures struct {
	MatchingSkills      string  `json:"matching_skills"`
	CoveragePercent     float64 `json:"skills_coverage_%"`
	BaseAssessment      string  `json:"base_assessment"`
	BiEncoderPercent    float64 `json:"bi_encoder_%"`
	CrossEncoderPercent float64 `json:"cross_encoder_%"`
}

// Refinement is the validated output of the generative stage.
type Refinement struct {
	RoleFit                bool
	Reasoning              string
	RefinedCertifications  string
	RecommendedSkillsToAdd string
}

// IntentVerdict is either refined (Refinement set, Degraded false) or
// rule-only (Refinement nil, Degraded true with a reason).
type IntentVerdict struct {
	Rules          RuleFeatures
	Refinement     *Refinement
	Degraded       bool
	DegradedReason string
}

// RoleFitLabel renders the role fit the way the result file expects it.
func (v IntentVerdict) RoleFitLabel() string {
	if v.Refinement == nil {
		return ""
	}
	if v.Refinement.RoleFit {
		return "Yes"
	}
	return "No"
}

type ResultRow struct {
	Name                  string
	File                  string
	BiEncoderPercent      float64
	CrossEncoderPercent   float64
	SkillsCoveragePercent float64
	FinalScorePercent     float64
	PredictedMatch        string
	MatchedSkills         []string
	Entities              EntityBlock
	Verdict               IntentVerdict
	Error                 string
}

type ResultTable struct {
	Rows        []ResultRow
	GeneratedAt time.Time
}
