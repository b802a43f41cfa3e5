package filter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/venari/internal/models"
)

func testPolicy() *models.PrefilterPolicy {
	return &models.PrefilterPolicy{
		ExcludedJobTypes:     []string{"contract", "internship"},
		ExcludedSeniority:    []string{"junior"},
		ExcludedCompanies:    []string{"Globex, Inc."},
		ExcludedKeywords:     []string{"clearance required"},
		ExcludedDomains:      []string{"spamboard.example"},
		RejectDays:           30,
		AllowedArrangements:  []string{"remote", "hybrid"},
		MinSalaryFloor:       80000,
		SalaryThreshold:      120000,
		RequiredTechnologies: []string{"go"},
		MinDescriptionLength: 100,
		IdealSeniority:       []string{"senior", "staff"},
		MinExperienceYears:   5,
		Strikes: models.StrikeWeights{
			LowSalary:         1,
			LowExperience:     1,
			NonIdealSeniority: 1,
			MissingTechnology: 1,
			ShortDescription:  1,
			PostingAge:        1,
		},
		StrikeThreshold: 3,
	}
}

func passingJob(now time.Time) *models.NormalizedJob {
	return &models.NormalizedJob{
		Title:       "Senior Go Engineer",
		Company:     "Acme",
		URL:         "https://acme.example/jobs/1",
		Description: strings.Repeat("Building Go services on Kubernetes. ", 10),
		PostedDate:  now.Add(-2 * time.Hour).Format(time.RFC3339),
		SalaryMax:   180000,
	}
}

func TestEvaluatePassesCleanJob(t *testing.T) {
	now := time.Now().UTC()
	v := Evaluate(passingJob(now), nil, now, testPolicy())
	assert.True(t, v.Passed)
	assert.Empty(t, v.HardRejection)
	assert.Zero(t, v.Strikes)
}

func TestHardRejections(t *testing.T) {
	now := time.Now().UTC()
	policy := testPolicy()

	tests := []struct {
		name   string
		mutate func(*models.NormalizedJob)
		reason string
	}{
		{
			"job type in title",
			func(j *models.NormalizedJob) { j.Title = "Senior Go Engineer (Contract)" },
			"excluded job type",
		},
		{
			"seniority from title",
			func(j *models.NormalizedJob) { j.Title = "Junior Go Developer" },
			"excluded seniority",
		},
		{
			"company matched after normalization",
			func(j *models.NormalizedJob) { j.Company = "globex" },
			"excluded company",
		},
		{
			"keyword in title",
			func(j *models.NormalizedJob) { j.Title = "Senior Go Engineer - Clearance Required" },
			"excluded keyword",
		},
		{
			"domain suffix match",
			func(j *models.NormalizedJob) { j.URL = "https://jobs.spamboard.example/1" },
			"excluded domain",
		},
		{
			"stale posting",
			func(j *models.NormalizedJob) { j.PostedDate = now.Add(-31 * 24 * time.Hour).Format(time.RFC3339) },
			"older than 30 days",
		},
		{
			"salary below floor",
			func(j *models.NormalizedJob) { j.SalaryMax = 70000 },
			"below floor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := passingJob(now)
			tt.mutate(job)
			v := Evaluate(job, nil, now, policy)
			assert.False(t, v.Passed)
			assert.Contains(t, v.HardRejection, tt.reason)
		})
	}
}

func TestHardRejectionOrderIsFixed(t *testing.T) {
	now := time.Now().UTC()
	job := passingJob(now)
	// Matches both an excluded job type and an excluded keyword; job type
	// is checked first.
	job.Title = "Contract Engineer - Clearance Required"

	v := Evaluate(job, nil, now, testPolicy())
	assert.Contains(t, v.HardRejection, "excluded job type")
}

func TestArrangementRejection(t *testing.T) {
	now := time.Now().UTC()
	extraction := &models.JobExtraction{WorkArrangement: "onsite", SalaryMax: 180000}

	v := Evaluate(passingJob(now), extraction, now, testPolicy())
	assert.False(t, v.Passed)
	assert.Contains(t, v.HardRejection, "work arrangement not allowed")
}

func TestStrikeAccumulation(t *testing.T) {
	now := time.Now().UTC()
	policy := testPolicy()

	job := &models.NormalizedJob{
		Title:       "Senior Engineer", // no required tech mention
		URL:         "https://acme.example/jobs/2",
		Description: "Short.",                                             // short description strike
		PostedDate:  now.Add(-48 * time.Hour).Format(time.RFC3339),        // posting age strike
	}
	// Strikes: missing salary, missing go, short description, posting age = 4.
	v := Evaluate(job, nil, now, policy)
	assert.False(t, v.Passed)
	assert.Empty(t, v.HardRejection)
	assert.Equal(t, 4, v.Strikes)

	// Below the threshold the job still passes.
	job.SalaryMax = 150000
	job.Description = strings.Repeat("Go services. ", 20)
	v = Evaluate(job, nil, now, policy)
	assert.True(t, v.Passed)
	assert.Equal(t, 1, v.Strikes)
}

func TestLowExperienceStrike(t *testing.T) {
	now := time.Now().UTC()
	extraction := &models.JobExtraction{
		YearsRequired:   2,
		Technologies:    []string{"Go"},
		WorkArrangement: "remote",
		SalaryMax:       180000,
	}

	v := Evaluate(passingJob(now), extraction, now, testPolicy())
	assert.True(t, v.Passed)
	assert.Equal(t, 1, v.Strikes)
	assert.Contains(t, v.Reasons, "low experience requirement")
}

func TestEvaluateHardSkipsStrikes(t *testing.T) {
	now := time.Now().UTC()
	job := &models.NormalizedJob{
		Title:       "Senior Engineer",
		URL:         "https://acme.example/jobs/3",
		Description: "Short.",
	}

	// Would take several strikes, but intake only applies hard rejections.
	v := EvaluateHard(job, now, testPolicy())
	assert.True(t, v.Passed)
	assert.Zero(t, v.Strikes)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	now := time.Now().UTC()
	job := passingJob(now)
	job.SalaryMax = 0

	first := Evaluate(job, nil, now, testPolicy())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Evaluate(job, nil, now, testPolicy()))
	}
}
