package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/venari/internal/interfaces"
)

// EstimateTokens approximates token count from rune length. Four runes
// per token is close enough for budget gating.
func EstimateTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return n/4 + 1
}

// StripJSONFences removes a surrounding markdown code fence when the model
// wraps its JSON answer in one.
func StripJSONFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

const companyExtractionSystem = `You research companies for a job search pipeline.
Given raw text about a company, extract structured facts.
Respond with a single JSON object and nothing else:
{
  "about": "2-4 sentence factual description",
  "culture": "what is known about working there, or empty string",
  "mission": "the company's stated mission, or empty string",
  "industry": "primary industry, or empty string",
  "website": "official website url, or empty string",
  "headquarters_location": "city and country, or empty string",
  "founded": "founding year, or empty string",
  "employee_count": 0,
  "is_remote_first": false,
  "ai_ml_focus": false,
  "products": ["main products or services"],
  "tech_stack": ["technologies known to be used"]
}
Never invent facts not present in the text. Empty string or zero means unknown.`

// BuildCompanyExtractionPrompt assembles the company_extraction request.
func BuildCompanyExtractionPrompt(input *interfaces.CompanyExtractionInput) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Company name: %s\n\n", input.CompanyName)
	if input.WikiText != "" {
		fmt.Fprintf(&b, "Encyclopedia summary:\n%s\n\n", input.WikiText)
	}
	if input.SearchText != "" {
		fmt.Fprintf(&b, "Web search results:\n%s\n\n", input.SearchText)
	}
	if input.PageSample != "" {
		fmt.Fprintf(&b, "Company website sample:\n%s\n", input.PageSample)
	}
	return companyExtractionSystem, b.String()
}

const jobExtractionSystem = `You extract structured fields from job postings.
Respond with a single JSON object and nothing else:
{
  "seniority": "junior|mid|senior|staff|principal|lead|manager or empty string",
  "technologies": ["technologies the role requires"],
  "work_arrangement": "remote|hybrid|onsite or empty string",
  "years_required": 0,
  "posted_date": "ISO-8601 date if stated, else empty string",
  "salary_min": 0,
  "salary_max": 0,
  "role_summary": "1-2 sentence summary of the role"
}
Only report what the posting states. Zero or empty means not stated.`

// BuildJobExtractionPrompt assembles the job_extraction request.
func BuildJobExtractionPrompt(input *interfaces.JobExtractionInput) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", input.Title)
	if input.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", input.Location)
	}
	if input.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", input.URL)
	}
	fmt.Fprintf(&b, "\nPosting:\n%s\n", input.Description)
	return jobExtractionSystem, b.String()
}

const selectorDiscoverySystem = `You identify job listings in raw careers-page HTML.
Find the repeating element that represents one job posting and CSS selectors
for its fields. Respond with a single JSON object and nothing else:
{
  "job_selector": "CSS selector matching each job element",
  "fields": {
    "title": "selector for the job title, relative to the job element",
    "url": "selector for the posting link; append @href for an attribute",
    "location": "selector for the location, or omit if absent"
  }
}
Selectors must use classes and structure present in the HTML. If the page
has no job list, respond with {"job_selector": "", "fields": {}}.`

// BuildSelectorDiscoveryPrompt assembles the selector_discovery request.
func BuildSelectorDiscoveryPrompt(input *interfaces.SelectorDiscoveryInput) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Page URL: %s\n", input.URL)
	if input.CompanyName != "" {
		fmt.Fprintf(&b, "Company: %s\n", input.CompanyName)
	}
	fmt.Fprintf(&b, "\nHTML:\n%s\n", input.PageSample)
	return selectorDiscoverySystem, b.String()
}

const matchAnalysisSystem = `You judge how well a candidate fits a specific job.
Respond with a single JSON object and nothing else:
{
  "match_score": 0,
  "reasoning": "3-5 sentences explaining the score",
  "matched_skills": ["candidate skills the job needs"],
  "missing_skills": ["job requirements the candidate lacks"],
  "priority": "high|medium|low"
}
match_score is 0-100. Be critical: a score above 80 means the candidate
should apply today.`

// BuildMatchAnalysisPrompt assembles the match_analysis request.
func BuildMatchAnalysisPrompt(input *interfaces.MatchAnalysisInput) (system, user string) {
	var b strings.Builder

	b.WriteString("## Candidate\n")
	if p := input.Personal; p != nil {
		fmt.Fprintf(&b, "Seniority: %s\n", p.SeniorityLevel)
		fmt.Fprintf(&b, "Location: %s (UTC%+.1f)\n", p.Location, p.TimezoneOffset)
		fmt.Fprintf(&b, "Remote preference: %s\n", p.RemotePreference)
		fmt.Fprintf(&b, "Minimum salary: %d\n", p.MinSalary)
		b.WriteString("Skills:\n")
		for _, s := range p.Skills {
			fmt.Fprintf(&b, "- %s (%.1f years)\n", s.Name, s.Years)
		}
		if len(p.DesiredRoles) > 0 {
			fmt.Fprintf(&b, "Desired roles: %s\n", strings.Join(p.DesiredRoles, ", "))
		}
	}

	b.WriteString("\n## Job\n")
	if l := input.Listing; l != nil {
		fmt.Fprintf(&b, "Title: %s\n", l.Title)
		fmt.Fprintf(&b, "Location: %s\n", l.Location)
		fmt.Fprintf(&b, "Salary: %s\n", l.SalaryRange)
		fmt.Fprintf(&b, "Description:\n%s\n", l.Description)
	}
	if e := input.Extraction; e != nil {
		extracted, _ := json.Marshal(e)
		fmt.Fprintf(&b, "Extracted fields: %s\n", extracted)
	}

	if c := input.Company; c != nil {
		b.WriteString("\n## Company\n")
		fmt.Fprintf(&b, "Name: %s\n", c.DisplayName)
		if c.About != "" {
			fmt.Fprintf(&b, "About: %s\n", c.About)
		}
		if c.Culture != "" {
			fmt.Fprintf(&b, "Culture: %s\n", c.Culture)
		}
		fmt.Fprintf(&b, "Remote-first: %t, AI/ML focus: %t\n", c.IsRemoteFirst, c.AIMLFocus)
	}

	if s := input.DeterministicScore; s != nil {
		breakdown, _ := json.Marshal(s)
		fmt.Fprintf(&b, "\n## Deterministic score\n%s\n", breakdown)
	}

	return matchAnalysisSystem, b.String()
}

// repairPrompt asks the model to fix an unparseable answer. Used exactly
// once per run.
func repairPrompt(broken string) string {
	return "Your previous answer was not valid JSON. Reply again with only the corrected JSON object, no prose, no code fences.\n\nPrevious answer:\n" + broken
}
