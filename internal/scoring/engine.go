// Package scoring implements the deterministic scoring engine. Score is a
// pure function of its inputs; the same job, company, profile and policy
// always produce the same breakdown.
package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/ternarybob/venari/internal/models"
)

// Score computes the weighted breakdown for one listing. extraction and
// company may be nil; missing data contributes zero, never a penalty,
// except where policy explicitly penalizes absence.
func Score(listing *models.JobListing, extraction *models.JobExtraction, company *models.Company, personal *models.PersonalInfo, policy *models.MatchPolicy, now time.Time) models.ScoreBreakdown {
	breakdown := models.ScoreBreakdown{Passed: true}

	breakdown.SeniorityMatch = seniorityScore(extraction, policy, &breakdown)
	breakdown.LocationScore = locationScore(extraction, company, personal, policy)
	breakdown.SkillMatch = skillScore(listing, extraction, personal, policy)
	breakdown.SalaryScore = salaryScore(listing, extraction, policy)
	breakdown.FreshnessScore = freshnessScore(listing, extraction, now, policy)
	breakdown.RoleFitScore = roleFitScore(listing, policy)
	breakdown.CompanyScore = companyScore(company, policy)

	breakdown.FinalScore = breakdown.SeniorityMatch +
		breakdown.LocationScore +
		breakdown.SkillMatch +
		breakdown.SalaryScore +
		breakdown.FreshnessScore +
		breakdown.RoleFitScore +
		breakdown.CompanyScore

	if breakdown.Passed && breakdown.FinalScore < policy.MinScore {
		breakdown.Passed = false
		breakdown.RejectionReason = "below minimum score"
	}
	return breakdown
}

// seniorityScore buckets the extracted seniority. A rejected bucket is a
// dealbreaker regardless of the other components.
func seniorityScore(extraction *models.JobExtraction, policy *models.MatchPolicy, breakdown *models.ScoreBreakdown) int {
	if extraction == nil || extraction.Seniority == "" {
		return 0
	}
	seniority := strings.ToLower(extraction.Seniority)

	for _, rejected := range policy.Seniority.Rejected {
		if strings.Contains(seniority, strings.ToLower(rejected)) {
			breakdown.Passed = false
			breakdown.RejectionReason = "seniority"
			return 0
		}
	}
	for _, preferred := range policy.Seniority.Preferred {
		if strings.Contains(seniority, strings.ToLower(preferred)) {
			return policy.Seniority.PreferredScore
		}
	}
	for _, acceptable := range policy.Seniority.Acceptable {
		if strings.Contains(seniority, strings.ToLower(acceptable)) {
			return policy.Seniority.AcceptableScore
		}
	}
	return 0
}

func locationScore(extraction *models.JobExtraction, company *models.Company, personal *models.PersonalInfo, policy *models.MatchPolicy) int {
	arrangement := ""
	if extraction != nil {
		arrangement = strings.ToLower(extraction.WorkArrangement)
	}

	score := 0
	switch arrangement {
	case "remote":
		return policy.Location.RemoteScore
	case "hybrid":
		score = policy.Location.HybridScore
	case "onsite":
		score = -policy.Location.OnsitePenalty
	}

	// Non-remote roles pay a timezone penalty per hour beyond the allowed
	// difference when both offsets are known.
	if company != nil && personal != nil && company.TimezoneOffset != 0 {
		diff := math.Abs(personal.TimezoneOffset - company.TimezoneOffset)
		if diff > policy.Location.MaxTimezoneDiffHrs {
			over := int(math.Ceil(diff - policy.Location.MaxTimezoneDiffHrs))
			score -= over * policy.Location.TimezonePenaltyPerH
		}
	}
	return score
}

func skillScore(listing *models.JobListing, extraction *models.JobExtraction, personal *models.PersonalInfo, policy *models.MatchPolicy) int {
	corpus := strings.ToLower(listing.Title + " " + listing.Description)
	jobSkills := map[string]bool{}
	if extraction != nil {
		for _, tech := range extraction.Technologies {
			jobSkills[strings.ToLower(tech)] = true
		}
	}
	jobHas := func(skill string) bool {
		s := strings.ToLower(skill)
		return jobSkills[s] || strings.Contains(corpus, s)
	}

	userYears := map[string]float64{}
	if personal != nil {
		for _, s := range personal.Skills {
			userYears[strings.ToLower(s.Name)] = s.Years
		}
	}

	skills := &policy.Skills
	total := 0
	for skill, base := range skills.Scores {
		if !jobHas(skill) {
			continue
		}
		total += base
		if years, ok := userYears[strings.ToLower(skill)]; ok && skills.YearsMultiplier > 0 {
			bonus := int(years * skills.YearsMultiplier)
			if bonus > skills.MaxYearsBonus {
				bonus = skills.MaxYearsBonus
			}
			total += bonus
		}
	}

	for _, required := range skills.Required {
		if jobHas(required) {
			continue
		}
		credited := false
		for _, analog := range skills.AnalogGroups[required] {
			if jobHas(analog) {
				total += skills.Scores[required] * skills.AnalogCreditPct / 100
				credited = true
				break
			}
		}
		if !credited {
			total += skills.MissingReqPenalty
		}
	}

	if skills.MaxBonus > 0 && total > skills.MaxBonus {
		total = skills.MaxBonus
	}
	if skills.MaxPenalty > 0 && total < -skills.MaxPenalty {
		total = -skills.MaxPenalty
	}
	return total
}

func salaryScore(listing *models.JobListing, extraction *models.JobExtraction, policy *models.MatchPolicy) int {
	if policy.TargetSalary <= 0 {
		return 0
	}
	salaryMax := 0
	if extraction != nil {
		salaryMax = extraction.SalaryMax
	}
	if salaryMax == 0 && extraction != nil {
		salaryMax = extraction.SalaryMin
	}
	if salaryMax >= policy.TargetSalary {
		return policy.SalaryBonus
	}
	return 0
}

func freshnessScore(listing *models.JobListing, extraction *models.JobExtraction, now time.Time, policy *models.MatchPolicy) int {
	posted := listing.PostedDate
	if posted == "" && extraction != nil {
		posted = extraction.PostedDate
	}
	if posted == "" {
		return 0
	}

	var postedAt time.Time
	var err error
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if postedAt, err = time.Parse(layout, posted); err == nil {
			break
		}
	}
	if err != nil {
		return 0
	}

	days := int(now.Sub(postedAt).Hours() / 24)
	switch {
	case policy.FreshDays > 0 && days <= policy.FreshDays:
		return policy.FreshBonus
	case policy.StaleDays > 0 && days >= policy.StaleDays:
		return -policy.StalePenalty
	}
	return 0
}

func roleFitScore(listing *models.JobListing, policy *models.MatchPolicy) int {
	title := strings.ToLower(listing.Title)
	total := 0
	for keyword, score := range policy.TitleKeywords {
		if strings.Contains(title, strings.ToLower(keyword)) {
			total += score
		}
	}
	return total
}

func companyScore(company *models.Company, policy *models.MatchPolicy) int {
	if company == nil {
		return 0
	}
	total := 0
	if company.IsRemoteFirst {
		total += policy.Company.RemoteFirstBonus
	}
	if company.AIMLFocus {
		total += policy.Company.AIMLFocusBonus
	}
	if company.SizeCategory != "" {
		total += policy.Company.SizeBonuses[string(company.SizeCategory)]
	}
	return total
}
