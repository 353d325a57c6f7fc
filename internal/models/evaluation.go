package models

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	StatusQueued     RunStatus = "queued"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// ScreeningRun is one queued evaluation of an uploaded resume folder.
type ScreeningRun struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	JobDescription string         `gorm:"type:text;not null" json:"job_description"`
	RequiredSkills string         `gorm:"type:text" json:"required_skills"`
	UploadDir      string         `gorm:"type:text" json:"-"`
	Status         RunStatus      `gorm:"not null;default:'queued'" json:"status"`
	DocumentCount  int            `gorm:"default:0" json:"document_count"`
	ResultPath     *string        `gorm:"type:text" json:"result_path,omitempty"`
	ErrorMessage   *string        `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	Results        []ResultRecord `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ScreeningRun) TableName() string {
	return "screening_runs"
}

// ResultRecord is the persisted form of a ResultRow. Rank is 1-based in table order.
type ResultRecord struct {
	ID                     uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RunID                  uuid.UUID `gorm:"type:uuid;not null;index" json:"run_id"`
	Rank                   int       `gorm:"not null" json:"rank"`
	Name                   string    `gorm:"type:text" json:"name"`
	File                   string    `gorm:"type:text" json:"file"`
	BiEncoderPercent       float64   `json:"bi_encoder_percent"`
	CrossEncoderPercent    float64   `json:"cross_encoder_percent"`
	SkillsCoveragePercent  float64   `json:"skills_coverage_percent"`
	FinalScorePercent      float64   `json:"final_score_percent"`
	PredictedMatch         string    `gorm:"type:varchar(3)" json:"predicted_match"`
	MatchingSkills         string    `gorm:"type:text" json:"matching_skills"`
	BaseAssessment         string    `gorm:"type:varchar(16)" json:"base_assessment"`
	CertificatesFound      string    `gorm:"type:text" json:"certificates_found"`
	AchievementsFound      string    `gorm:"type:text" json:"achievements_found"`
	CompetitionsWon        string    `gorm:"type:text" json:"competitions_won"`
	RoleFit                string    `gorm:"type:varchar(3)" json:"role_fit"`
	Reasoning              string    `gorm:"type:text" json:"reasoning"`
	RefinedCertifications  string    `gorm:"type:text" json:"refined_certifications"`
	RecommendedSkillsToAdd string    `gorm:"type:text" json:"recommended_skills_to_add"`
	Degraded               bool      `json:"degraded"`
	Error                  string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt              time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ResultRecord) TableName() string {
	return "screening_results"
}

// NewResultRecord flattens a ranked row for storage.
func NewResultRecord(runID uuid.UUID, rank int, row ResultRow) ResultRecord {
	rec := ResultRecord{
		ID:                    uuid.New(),
		RunID:                 runID,
		Rank:                  rank,
		Name:                  row.Name,
		File:                  row.File,
		BiEncoderPercent:      row.BiEncoderPercent,
		CrossEncoderPercent:   row.CrossEncoderPercent,
		SkillsCoveragePercent: row.SkillsCoveragePercent,
		FinalScorePercent:     row.FinalScorePercent,
		PredictedMatch:        row.PredictedMatch,
		MatchingSkills:        row.Verdict.Rules.MatchingSkills,
		BaseAssessment:        row.Verdict.Rules.BaseAssessment,
		CertificatesFound:     row.Entities.CertificatesFound,
		AchievementsFound:     row.Entities.AchievementsFound,
		CompetitionsWon:       row.Entities.CompetitionsWon,
		RoleFit:               row.Verdict.RoleFitLabel(),
		Degraded:              row.Verdict.Degraded,
		Error:                 row.Error,
		CreatedAt:             time.Now(),
	}

	if r := row.Verdict.Refinement; r != nil {
		rec.Reasoning = r.Reasoning
		rec.RefinedCertifications = r.RefinedCertifications
		rec.RecommendedSkillsToAdd = r.RecommendedSkillsToAdd
	}

	return rec
}
