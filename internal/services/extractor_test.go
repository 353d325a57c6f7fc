package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor(rec EntityRecognizer) *Extractor {
	return NewExtractor(rec, ExtractorOptions{FuzzyThreshold: 85, MinFuzzyLength: 5, NameDenyYear: "2026"}, nil)
}

func TestExtractName(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name     string
		rec      EntityRecognizer
		fileName string
		expect   string
	}{
		{name: "uses recognized person", rec: fakeRecognizer{person: "Jane Doe"}, fileName: "x.pdf", expect: "Jane Doe"},
		{name: "falls back when no person", rec: fakeRecognizer{}, fileName: "john_smith_CV_final.pdf", expect: "john smith"},
		{name: "falls back on recognizer error", rec: fakeRecognizer{err: errors.New("boom")}, fileName: "Mary-Ann-Resume-2026.docx", expect: "Mary Ann"},
		{name: "nil recognizer", rec: nil, fileName: "dir/alex_kim.txt", expect: "alex kim"},
		{name: "keeps tokens containing deny words", rec: nil, fileName: "cvetkovic_resume.pdf", expect: "cvetkovic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expect, newTestExtractor(tt.rec).ExtractName(ctx, "raw text", tt.fileName))
		})
	}
}

func TestMatchSkills(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(nil)
	text := Normalize("Built ETL in Python and SQL. Shipped machine learning models. Used Node.js and C++.")

	t.Run("exact and fuzzy matches", func(t *testing.T) {
		res := e.MatchSkills(text, []string{"python", "sql", "machine learning", "kubernetes"})
		assert.Equal(t, []string{"machine learning", "python", "sql"}, res.Matched)
		assert.InDelta(t, 75.0, res.Coverage, 0.001)
	})

	t.Run("punctuation in skills", func(t *testing.T) {
		res := e.MatchSkills(text, []string{"node.js", "c++"})
		assert.ElementsMatch(t, []string{"node.js", "c++"}, res.Matched)
		assert.InDelta(t, 100.0, res.Coverage, 0.001)
	})

	t.Run("empty required gives zero coverage", func(t *testing.T) {
		res := e.MatchSkills(text, nil)
		assert.Empty(t, res.Matched)
		assert.Equal(t, 0.0, res.Coverage)

		res = e.MatchSkills(text, []string{"  ", ""})
		assert.Empty(t, res.Matched)
		assert.Equal(t, 0.0, res.Coverage)
	})

	t.Run("deduplicates case insensitively keeping caller casing", func(t *testing.T) {
		res := e.MatchSkills(text, []string{"Python", "python"})
		assert.Equal(t, []string{"Python"}, res.Matched)
	})

	t.Run("fuzzy typo tolerance", func(t *testing.T) {
		res := e.MatchSkills(Normalize("Operated kubernates clusters"), []string{"kubernetes"})
		assert.Equal(t, []string{"kubernetes"}, res.Matched)
	})
}

func TestMatchSkillsShortSkillsNeedExactMatch(t *testing.T) {
	e := newTestExtractor(nil)

	res := e.MatchSkills(Normalize("Active in the local community and a javascript meetup"), []string{"unit", "java", "go"})
	assert.Empty(t, res.Matched)
	assert.Equal(t, 0.0, res.Coverage)
}

func TestMatchSkillsCoverageBounds(t *testing.T) {
	e := newTestExtractor(nil)
	texts := []string{"", "python", "python sql spark airflow dbt", "nothing relevant"}
	skills := [][]string{nil, {"python"}, {"python", "sql", "rust"}, {"a", "b", ""}}

	for _, text := range texts {
		for _, req := range skills {
			res := e.MatchSkills(Normalize(text), req)
			assert.GreaterOrEqual(t, res.Coverage, 0.0)
			assert.LessOrEqual(t, res.Coverage, 100.0)
		}
	}
}

func TestMatchSkillsExactOccurrenceAlwaysMatches(t *testing.T) {
	e := newTestExtractor(nil)
	for _, skill := range []string{"go", "r", "sql", "data engineering", "c#"} {
		text := Normalize("experience with " + skill + " in production")
		res := e.MatchSkills(text, []string{skill})
		require.Len(t, res.Matched, 1, skill)
		assert.Equal(t, skill, res.Matched[0])
	}
}

func TestExtractEntities(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(nil)

	t.Run("finds certifications", func(t *testing.T) {
		raw := "Jane Doe\nAWS Certified Solutions Architect. Completed an online course on Deep Learning\n- Publication: Graph models in retail"
		block := e.ExtractEntities(raw)

		parts := strings.Split(block.CertificatesFound, "; ")
		assert.Contains(t, parts, "certified solutions architect")
		assert.Contains(t, parts, "course on deep learning")
		assert.Contains(t, parts, "publication: graph models in retail")
		assert.True(t, sortedStrings(parts))
		assert.Empty(t, block.AchievementsFound)
		assert.Empty(t, block.CompetitionsWon)
	})

	t.Run("no trigger phrases gives empty block", func(t *testing.T) {
		block := e.ExtractEntities("Backend engineer with Go and Postgres experience.")
		assert.Equal(t, "", block.CertificatesFound)
		assert.Equal(t, "", block.AchievementsFound)
		assert.Equal(t, "", block.CompetitionsWon)
	})

	t.Run("deduplicates repeated phrases", func(t *testing.T) {
		block := e.ExtractEntities("Training in Kafka.\nTraining in Kafka.")
		assert.Equal(t, "training in kafka", block.CertificatesFound)
	})

	t.Run("caps captured text", func(t *testing.T) {
		block := e.ExtractEntities("certificate " + strings.Repeat("x", 300))
		assert.Len(t, block.CertificatesFound, len("certificate ")+100-1)
	})
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}

func TestMatchSkillsCountsDistinctSkills(t *testing.T) {
	e := newTestExtractor(nil)

	res := e.MatchSkills(Normalize("Senior Python developer"), []string{"python", "Python", "python"})
	assert.Equal(t, []string{"python"}, res.Matched)
	assert.Equal(t, 100.0, res.Coverage)

	res = e.MatchSkills(Normalize("Senior Python developer"), []string{"python", "rust", "rust"})
	assert.Equal(t, 50.0, res.Coverage)
}

func TestMatchSkillsIsIdempotent(t *testing.T) {
	e := newTestExtractor(nil)
	text := Normalize("Built ETL jobs with Python, SQL and Apache Airflow; mentored juniors.")
	required := []string{"airflow", "python", "sql", "kubernetes", "machine learning"}

	first := e.MatchSkills(text, required)
	second := e.MatchSkills(text, required)
	assert.Equal(t, first, second)
}

func TestExtractNameFallsBackWhenRecognizerHangs(t *testing.T) {
	e := NewExtractor(blockingRecognizer{}, ExtractorOptions{RecognizeTimeout: 20 * time.Millisecond}, nil)

	start := time.Now()
	name := e.ExtractName(context.Background(), "raw text", "jane_doe_resume.pdf")

	assert.Equal(t, "jane doe", name)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestExtractNameWaitsForSharedLimiter(t *testing.T) {
	limiter := NewCapabilityLimiter(1)
	e := NewExtractor(fakeRecognizer{person: "Jane Doe"}, ExtractorOptions{Limiter: limiter}, nil)

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = limiter.Do(context.Background(), func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, "jane doe", e.ExtractName(ctx, "raw text", "jane_doe.pdf"))

	close(release)
	assert.Eventually(t, func() bool {
		return e.ExtractName(context.Background(), "raw text", "jane_doe.pdf") == "Jane Doe"
	}, time.Second, 10*time.Millisecond)
}
