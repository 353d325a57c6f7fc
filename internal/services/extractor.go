package services

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/models"
)

var (
	certificatePattern = regexp.MustCompile(`(?:certified(?:\s+in)?|certificate|certification|course|training|publication)[^.\n]{0,100}`)
	multiSpace         = regexp.MustCompile(`\s+`)
)

const defaultRecognizeTimeout = 20 * time.Second

type ExtractorOptions struct {
	FuzzyThreshold int
	MinFuzzyLength int
	NameDenyYear   string
	// Limiter is shared with other generative calls. A private single-slot limiter is
	// used when nil.
	Limiter          *CapabilityLimiter
	RecognizeTimeout time.Duration
}

type Extractor struct {
	recognizer     EntityRecognizer
	limiter        *CapabilityLimiter
	timeout        time.Duration
	fuzzyThreshold float64
	minFuzzyLength int
	nameDenyList   *regexp.Regexp
	log            *zap.Logger
}

// NewExtractor builds an extractor. recognizer may be nil, in which case names
// always come from the file name.
func NewExtractor(recognizer EntityRecognizer, opts ExtractorOptions, log *zap.Logger) *Extractor {
	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = 85
	}
	if opts.MinFuzzyLength <= 0 {
		opts.MinFuzzyLength = 5
	}
	if opts.Limiter == nil {
		opts.Limiter = NewCapabilityLimiter(1)
	}
	if opts.RecognizeTimeout <= 0 {
		opts.RecognizeTimeout = defaultRecognizeTimeout
	}

	deny := []string{"cv", "resume", "final"}
	if year := strings.TrimSpace(opts.NameDenyYear); year != "" {
		deny = append(deny, regexp.QuoteMeta(year))
	}

	return &Extractor{
		recognizer:     recognizer,
		limiter:        opts.Limiter,
		timeout:        opts.RecognizeTimeout,
		fuzzyThreshold: float64(opts.FuzzyThreshold),
		minFuzzyLength: opts.MinFuzzyLength,
		nameDenyList:   regexp.MustCompile(fmt.Sprintf(`(?i)\b(%s)\b`, strings.Join(deny, "|"))),
		log:            logger.OrNop(log),
	}
}

// ExtractName returns the first person the recognizer finds in raw, falling back to a
// cleaned-up file stem. It never fails.
func (e *Extractor) ExtractName(ctx context.Context, raw, fileName string) string {
	if e.recognizer != nil {
		var person string
		err := e.limiter.Do(ctx, func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, e.timeout)
			defer cancel()

			out, err := e.recognizer.RecognizePerson(callCtx, raw)
			person = out
			return err
		})
		if err != nil {
			e.log.Warn("entity recognition failed, using file name", zap.String("file", fileName), zap.Error(err))
		} else if person = strings.TrimSpace(person); person != "" {
			return person
		}
	}

	return e.NameFromFile(fileName)
}

// NameFromFile derives a display name from a resume file name.
func (e *Extractor) NameFromFile(fileName string) string {
	base := filepath.Base(fileName)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	stem = e.nameDenyList.ReplaceAllString(stem, "")
	return strings.TrimSpace(multiSpace.ReplaceAllString(stem, " "))
}

// MatchSkills reports which required skills appear in the normalized resume text.
func (e *Extractor) MatchSkills(normalizedText string, required []string) models.SkillMatchResult {
	text := strings.ToLower(normalizedText)

	seen := make(map[string]struct{})
	var matched []string
	total := 0

	for _, skill := range required {
		skill = strings.TrimSpace(skill)
		key := strings.ToLower(skill)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		total++

		if e.matches(key, text) {
			matched = append(matched, skill)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return strings.ToLower(matched[i]) < strings.ToLower(matched[j])
	})

	denom := total
	if denom < 1 {
		denom = 1
	}

	return models.SkillMatchResult{
		Matched:  matched,
		Coverage: 100 * float64(len(matched)) / float64(denom),
	}
}

func (e *Extractor) matches(skill, text string) bool {
	if containsPhrase(text, skill) {
		return true
	}
	if len([]rune(skill)) < e.minFuzzyLength {
		return false
	}
	return PartialRatio(skill, text) >= e.fuzzyThreshold
}

// containsPhrase matches skill as a whole phrase, bounded by non-alphanumeric characters.
func containsPhrase(text, skill string) bool {
	pattern := `(?:^|[^a-z0-9])` + regexp.QuoteMeta(skill) + `(?:$|[^a-z0-9])`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// ExtractEntities collects certification and publication phrases from raw resume text.
func (e *Extractor) ExtractEntities(text string) models.EntityBlock {
	found := certificatePattern.FindAllString(strings.ToLower(text), -1)

	unique := make(map[string]struct{}, len(found))
	for _, f := range found {
		f = strings.TrimSpace(strings.Trim(f, " -•\n"))
		if f != "" {
			unique[f] = struct{}{}
		}
	}

	certs := make([]string, 0, len(unique))
	for c := range unique {
		certs = append(certs, c)
	}
	sort.Strings(certs)

	return models.EntityBlock{
		CertificatesFound: strings.Join(certs, "; "),
	}
}
