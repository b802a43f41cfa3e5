package common

import (
	"net/url"
	"regexp"
	"strings"
)

// Known job-board vendor domains. Used for website preference during
// company merges (a first-party domain beats any of these) and for
// detecting career pages worth a SourceDiscovery spawn.
var jobBoardDomains = []string{
	"greenhouse.io",
	"boards.greenhouse.io",
	"lever.co",
	"jobs.lever.co",
	"myworkdayjobs.com",
	"ashbyhq.com",
	"jobs.ashbyhq.com",
	"bamboohr.com",
	"smartrecruiters.com",
	"jobvite.com",
	"workable.com",
	"recruitee.com",
}

// searchEngineDomains are never acceptable as a company website.
var searchEngineDomains = []string{
	"google.com", "bing.com", "duckduckgo.com", "wikipedia.org", "linkedin.com",
}

// workdaySubdomain matches tenant career subdomains like
// mdlz.wd1.myworkdayjobs.com and captures the tenant slug.
var workdaySubdomain = regexp.MustCompile(`^([a-z0-9-]+)\.wd\d+\.myworkdayjobs\.com$`)

// greenhouseBoard matches board URLs and captures the board slug.
var greenhouseBoard = regexp.MustCompile(`boards(?:-api)?\.greenhouse\.io/(?:v1/boards/)?([a-z0-9-]+)`)

// leverBoard captures the company slug from jobs.lever.co URLs.
var leverBoard = regexp.MustCompile(`jobs\.lever\.co/([a-z0-9-]+)`)

// canonicalCompanyNames maps vendor tenant slugs to canonical company
// names. Extended as slugs that don't round-trip through search are found.
var canonicalCompanyNames = map[string]string{
	"mdlz":       "Mondelez International",
	"gm":         "General Motors",
	"jnj":        "Johnson & Johnson",
	"pg":         "Procter & Gamble",
	"ibm":        "IBM",
	"jpmc":       "JPMorgan Chase",
	"baesystems": "BAE Systems",
}

// IsJobBoardURL reports whether the URL is hosted on a known job-board
// vendor domain.
func IsJobBoardURL(raw string) bool {
	host := Hostname(raw)
	if host == "" {
		return false
	}
	for _, d := range jobBoardDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// IsSearchEngineURL reports whether the URL points at a search engine or
// aggregator rather than a first-party site.
func IsSearchEngineURL(raw string) bool {
	host := Hostname(raw)
	if host == "" {
		return false
	}
	rd := RegistrableDomain(host)
	for _, d := range searchEngineDomains {
		if rd == d {
			return true
		}
	}
	return false
}

// BoardSlug extracts the vendor tenant slug from a job-board URL, if any.
func BoardSlug(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())

	if m := workdaySubdomain.FindStringSubmatch(host); m != nil {
		return m[1], true
	}
	lowered := strings.ToLower(raw)
	if m := greenhouseBoard.FindStringSubmatch(lowered); m != nil {
		return m[1], true
	}
	if m := leverBoard.FindStringSubmatch(lowered); m != nil {
		return m[1], true
	}
	return "", false
}

// ResolveSearchName maps a company hint to the name used for enrichment
// lookups. When the hint URL is a vendor careers page whose tenant slug has
// a canonical mapping, the mapped name wins over the raw hint.
func ResolveSearchName(name, hintURL string) string {
	slug, ok := BoardSlug(hintURL)
	if !ok {
		slug = strings.ToLower(strings.TrimSpace(name))
	}
	if canonical, ok := canonicalCompanyNames[slug]; ok {
		return canonical
	}
	if canonical, ok := canonicalCompanyNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return canonical
	}
	return name
}

// CareerPagePatterns are path fragments that suggest a careers page when
// scanning an extracted company website.
var CareerPagePatterns = []string{"/careers", "/jobs", "/join-us", "/work-with-us"}
