// Package filter implements the deterministic prefilter: ordered hard
// rejections followed by strike accumulation against a threshold.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/models"
)

// Verdict is the filter outcome for one job.
type Verdict struct {
	Passed        bool     `json:"passed"`
	HardRejection string   `json:"hard_rejection,omitempty"`
	Strikes       int      `json:"strikes"`
	Reasons       []string `json:"reasons,omitempty"`
}

// Evaluate runs hard rejections then strikes. Hard rejections are checked
// in fixed order and the first match wins; strikes only accumulate when no
// hard rejection fired. extraction may be nil when the job has not been
// through AI extraction yet.
func Evaluate(job *models.NormalizedJob, extraction *models.JobExtraction, now time.Time, policy *models.PrefilterPolicy) Verdict {
	if reason := hardRejection(job, extraction, now, policy); reason != "" {
		return Verdict{Passed: false, HardRejection: reason, Reasons: []string{reason}}
	}
	return strikes(job, extraction, now, policy)
}

// EvaluateHard runs only the hard rejections. Intake uses this so jobs are
// never queued for content the policy outright excludes.
func EvaluateHard(job *models.NormalizedJob, now time.Time, policy *models.PrefilterPolicy) Verdict {
	if reason := hardRejection(job, nil, now, policy); reason != "" {
		return Verdict{Passed: false, HardRejection: reason, Reasons: []string{reason}}
	}
	return Verdict{Passed: true}
}

func hardRejection(job *models.NormalizedJob, extraction *models.JobExtraction, now time.Time, policy *models.PrefilterPolicy) string {
	title := strings.ToLower(job.Title)
	haystack := title + " " + strings.ToLower(job.URL)

	for _, jobType := range policy.ExcludedJobTypes {
		if jobType != "" && strings.Contains(title, strings.ToLower(jobType)) {
			return "excluded job type: " + jobType
		}
	}

	seniority := extractedSeniority(job, extraction)
	for _, excluded := range policy.ExcludedSeniority {
		if excluded != "" && seniority != "" && strings.Contains(seniority, strings.ToLower(excluded)) {
			return "excluded seniority: " + excluded
		}
	}

	if job.Company != "" {
		normalized := models.NormalizeCompanyName(job.Company)
		for _, excluded := range policy.ExcludedCompanies {
			if models.NormalizeCompanyName(excluded) == normalized {
				return "excluded company: " + excluded
			}
		}
	}

	for _, keyword := range policy.ExcludedKeywords {
		if keyword != "" && strings.Contains(haystack, strings.ToLower(keyword)) {
			return "excluded keyword: " + keyword
		}
	}

	host := common.Hostname(job.URL)
	for _, domain := range policy.ExcludedDomains {
		d := strings.ToLower(domain)
		if d != "" && (host == d || strings.HasSuffix(host, "."+d)) {
			return "excluded domain: " + domain
		}
	}

	if policy.RejectDays > 0 {
		if age, ok := postingAge(job, extraction, now); ok && age > time.Duration(policy.RejectDays)*24*time.Hour {
			return fmt.Sprintf("posting older than %d days", policy.RejectDays)
		}
	}

	if arrangement := extractedArrangement(extraction); arrangement != "" && len(policy.AllowedArrangements) > 0 {
		allowed := false
		for _, a := range policy.AllowedArrangements {
			if strings.EqualFold(a, arrangement) {
				allowed = true
				break
			}
		}
		if !allowed {
			return "work arrangement not allowed: " + arrangement
		}
	}

	if policy.MinSalaryFloor > 0 {
		if salaryMax := knownSalaryMax(job, extraction); salaryMax > 0 && salaryMax < policy.MinSalaryFloor {
			return fmt.Sprintf("salary %d below floor %d", salaryMax, policy.MinSalaryFloor)
		}
	}

	return ""
}

func strikes(job *models.NormalizedJob, extraction *models.JobExtraction, now time.Time, policy *models.PrefilterPolicy) Verdict {
	v := Verdict{}

	add := func(count int, reason string) {
		if count > 0 {
			v.Strikes += count
			v.Reasons = append(v.Reasons, reason)
		}
	}

	salaryMax := knownSalaryMax(job, extraction)
	if salaryMax == 0 || (policy.SalaryThreshold > 0 && salaryMax < policy.SalaryThreshold) {
		add(policy.Strikes.LowSalary, "low or missing salary")
	}

	if extraction != nil && policy.MinExperienceYears > 0 &&
		extraction.YearsRequired > 0 && extraction.YearsRequired < policy.MinExperienceYears {
		add(policy.Strikes.LowExperience, "low experience requirement")
	}

	if seniority := extractedSeniority(job, extraction); seniority != "" && len(policy.IdealSeniority) > 0 {
		ideal := false
		for _, s := range policy.IdealSeniority {
			if strings.Contains(seniority, strings.ToLower(s)) {
				ideal = true
				break
			}
		}
		if !ideal {
			add(policy.Strikes.NonIdealSeniority, "non-ideal seniority: "+seniority)
		}
	}

	if len(policy.RequiredTechnologies) > 0 {
		corpus := strings.ToLower(job.Title + " " + job.Description)
		if extraction != nil {
			corpus += " " + strings.ToLower(strings.Join(extraction.Technologies, " "))
		}
		for _, tech := range policy.RequiredTechnologies {
			if tech != "" && !strings.Contains(corpus, strings.ToLower(tech)) {
				add(policy.Strikes.MissingTechnology, "missing required technology: "+tech)
			}
		}
	}

	if policy.MinDescriptionLength > 0 && len(job.Description) < policy.MinDescriptionLength {
		add(policy.Strikes.ShortDescription, "short description")
	}

	if age, ok := postingAge(job, extraction, now); ok && age >= 24*time.Hour {
		add(policy.Strikes.PostingAge, "posting older than one day")
	}

	v.Passed = v.Strikes < policy.StrikeThreshold
	return v
}

// extractedSeniority prefers the AI-extracted seniority, falling back to
// title keywords.
func extractedSeniority(job *models.NormalizedJob, extraction *models.JobExtraction) string {
	if extraction != nil && extraction.Seniority != "" {
		return strings.ToLower(extraction.Seniority)
	}
	title := strings.ToLower(job.Title)
	for _, level := range []string{"principal", "staff", "senior", "junior", "intern", "lead", "manager", "director"} {
		if strings.Contains(title, level) {
			return level
		}
	}
	return ""
}

func extractedArrangement(extraction *models.JobExtraction) string {
	if extraction == nil {
		return ""
	}
	return strings.ToLower(extraction.WorkArrangement)
}

// knownSalaryMax returns the best known upper salary bound, zero when the
// posting states none.
func knownSalaryMax(job *models.NormalizedJob, extraction *models.JobExtraction) int {
	if extraction != nil && extraction.SalaryMax > 0 {
		return extraction.SalaryMax
	}
	if job.SalaryMax > 0 {
		return job.SalaryMax
	}
	if job.SalaryMin > 0 {
		return job.SalaryMin
	}
	if extraction != nil && extraction.SalaryMin > 0 {
		return extraction.SalaryMin
	}
	return 0
}

// postingAge parses the posted date and returns the age relative to now.
func postingAge(job *models.NormalizedJob, extraction *models.JobExtraction, now time.Time) (time.Duration, bool) {
	posted := job.PostedDate
	if posted == "" && extraction != nil {
		posted = extraction.PostedDate
	}
	if posted == "" {
		return 0, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, posted); err == nil {
			return now.Sub(t), true
		}
	}
	return 0, false
}
