package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/venari/internal/models"
)

func testMatchPolicy() *models.MatchPolicy {
	return &models.MatchPolicy{
		MinScore:      40,
		MinMatchScore: 65,
		Seniority: models.SenioritySplit{
			Preferred:       []string{"senior", "staff"},
			PreferredScore:  20,
			Acceptable:      []string{"lead"},
			AcceptableScore: 10,
			Rejected:        []string{"intern", "junior"},
		},
		Location: models.LocationWeights{
			RemoteScore:         20,
			HybridScore:         8,
			OnsitePenalty:       10,
			MaxTimezoneDiffHrs:  3,
			TimezonePenaltyPerH: 2,
		},
		Skills: models.SkillWeights{
			Scores:            map[string]int{"go": 15, "kubernetes": 8, "postgresql": 6},
			Required:          []string{"go"},
			AnalogGroups:      map[string][]string{"postgresql": {"mysql"}},
			AnalogCreditPct:   50,
			YearsMultiplier:   1.0,
			MaxYearsBonus:     8,
			MissingReqPenalty: -15,
			MaxBonus:          40,
			MaxPenalty:        25,
		},
		TargetSalary:  160000,
		SalaryBonus:   10,
		FreshDays:     3,
		FreshBonus:    5,
		StaleDays:     21,
		StalePenalty:  5,
		TitleKeywords: map[string]int{"backend": 5, "platform": 5},
		Company: models.CompanyWeights{
			RemoteFirstBonus: 8,
			AIMLFocusBonus:   4,
			SizeBonuses:      map[string]int{"small": 4, "medium": 6},
		},
	}
}

func testPersonal() *models.PersonalInfo {
	return &models.PersonalInfo{
		Name:           "Jane",
		TimezoneOffset: 10,
		Skills: []models.SkillExperience{
			{Name: "go", Years: 7},
			{Name: "kubernetes", Years: 4},
		},
	}
}

func TestScoreIsPure(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	listing := &models.JobListing{
		Title:       "Senior Backend Engineer",
		Description: "Go and Kubernetes platform work",
		PostedDate:  "2026-08-23",
	}
	extraction := &models.JobExtraction{
		Seniority:       "senior",
		WorkArrangement: "remote",
		Technologies:    []string{"Go", "Kubernetes"},
		SalaryMax:       170000,
	}
	company := &models.Company{IsRemoteFirst: true, SizeCategory: models.CompanySizeMedium}
	policy := testMatchPolicy()
	personal := testPersonal()

	first := Score(listing, extraction, company, personal, policy, now)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Score(listing, extraction, company, personal, policy, now))
	}
	assert.True(t, first.Passed)
}

func TestScoreComponents(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	listing := &models.JobListing{
		Title:       "Senior Backend Engineer",
		Description: "Go services",
		PostedDate:  "2026-08-23",
	}
	extraction := &models.JobExtraction{
		Seniority:       "senior",
		WorkArrangement: "remote",
		Technologies:    []string{"go"},
		SalaryMax:       170000,
	}

	b := Score(listing, extraction, nil, testPersonal(), testMatchPolicy(), now)

	assert.Equal(t, 20, b.SeniorityMatch)                       // preferred bucket
	assert.Equal(t, 20, b.LocationScore)                        // remote
	assert.Equal(t, 15+7, b.SkillMatch)                         // go base + capped years bonus
	assert.Equal(t, 10, b.SalaryScore)                          // above target
	assert.Equal(t, 5, b.FreshnessScore)                        // one day old
	assert.Equal(t, 5, b.RoleFitScore)                          // "backend" keyword
	assert.Equal(t, 0, b.CompanyScore)                          // nil company contributes zero
	assert.Equal(t, 20+20+22+10+5+5, b.FinalScore)
	assert.True(t, b.Passed)
}

func TestRejectedSeniorityIsDealbreaker(t *testing.T) {
	now := time.Now().UTC()
	listing := &models.JobListing{Title: "Engineer", Description: "go everywhere go"}
	extraction := &models.JobExtraction{
		Seniority:       "junior",
		WorkArrangement: "remote",
		SalaryMax:       200000,
	}

	b := Score(listing, extraction, nil, testPersonal(), testMatchPolicy(), now)
	assert.False(t, b.Passed)
	assert.Equal(t, "seniority", b.RejectionReason)
	assert.Equal(t, 0, b.SeniorityMatch)
}

func TestTimezonePenaltyForNonRemote(t *testing.T) {
	now := time.Now().UTC()
	listing := &models.JobListing{Title: "Senior Go Engineer", Description: "go"}
	extraction := &models.JobExtraction{Seniority: "senior", WorkArrangement: "hybrid"}
	// 8 hours apart, 3 allowed: 5 hours over at 2 points each.
	company := &models.Company{TimezoneOffset: 2}

	b := Score(listing, extraction, company, testPersonal(), testMatchPolicy(), now)
	assert.Equal(t, 8-5*2, b.LocationScore)
}

func TestRemoteIgnoresTimezone(t *testing.T) {
	now := time.Now().UTC()
	listing := &models.JobListing{Title: "Senior Go Engineer", Description: "go"}
	extraction := &models.JobExtraction{Seniority: "senior", WorkArrangement: "remote"}
	company := &models.Company{TimezoneOffset: -8}

	b := Score(listing, extraction, company, testPersonal(), testMatchPolicy(), now)
	assert.Equal(t, 20, b.LocationScore)
}

func TestMissingRequiredSkillPenaltyAndAnalogCredit(t *testing.T) {
	now := time.Now().UTC()
	policy := testMatchPolicy()
	policy.Skills.Required = []string{"postgresql"}

	// Job mentions mysql, an analog of postgresql: half credit instead of
	// the missing-required penalty.
	withAnalog := &models.JobListing{Title: "Senior Go Engineer", Description: "go and mysql"}
	b := Score(withAnalog, &models.JobExtraction{Seniority: "senior"}, nil, testPersonal(), policy, now)
	assert.Equal(t, 15+7+3, b.SkillMatch) // go base + years + 50% of postgresql's 6

	// No analog either: full penalty.
	without := &models.JobListing{Title: "Senior Go Engineer", Description: "go only"}
	b = Score(without, &models.JobExtraction{Seniority: "senior"}, nil, testPersonal(), policy, now)
	assert.Equal(t, 15+7-15, b.SkillMatch)
}

func TestBelowMinimumScoreFails(t *testing.T) {
	now := time.Now().UTC()
	listing := &models.JobListing{Title: "Engineer", Description: "nothing relevant"}

	b := Score(listing, nil, nil, testPersonal(), testMatchPolicy(), now)
	assert.False(t, b.Passed)
	assert.Equal(t, "below minimum score", b.RejectionReason)
}

func TestCompanyScore(t *testing.T) {
	now := time.Now().UTC()
	listing := &models.JobListing{Title: "Senior Go Engineer", Description: "go"}
	extraction := &models.JobExtraction{Seniority: "senior", WorkArrangement: "remote"}
	company := &models.Company{
		IsRemoteFirst: true,
		AIMLFocus:     true,
		SizeCategory:  models.CompanySizeSmall,
	}

	b := Score(listing, extraction, company, testPersonal(), testMatchPolicy(), now)
	assert.Equal(t, 8+4+4, b.CompanyScore)
}

func TestStalePostingPenalty(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	listing := &models.JobListing{
		Title:       "Senior Go Engineer",
		Description: "go",
		PostedDate:  "2026-07-01",
	}
	extraction := &models.JobExtraction{Seniority: "senior", WorkArrangement: "remote"}

	b := Score(listing, extraction, nil, testPersonal(), testMatchPolicy(), now)
	assert.Equal(t, -5, b.FreshnessScore)
}
