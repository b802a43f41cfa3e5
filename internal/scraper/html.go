package scraper

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/venari/internal/models"
)

// parseHTML extracts jobs from an HTML page. job_selector matches one node
// per job; field paths are CSS selectors relative to it, with an optional
// "@attr" suffix to read an attribute instead of text.
func parseHTML(body []byte, cfg *models.ScrapeConfig) ([]models.NormalizedJob, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, models.NewWorkerError(models.ErrParse, fmt.Errorf("source html: %w", err))
	}

	base, _ := url.Parse(cfg.URL)

	var jobs []models.NormalizedJob
	doc.Find(cfg.JobSelector).Each(func(_ int, item *goquery.Selection) {
		job := buildJob(cfg, func(path string) interface{} {
			return selectValue(item, path)
		})
		if job.Title == "" || job.URL == "" {
			return
		}
		job.URL = absoluteURL(base, job.URL)
		jobs = append(jobs, job)
	})
	return jobs, nil
}

// selectValue resolves one "selector@attr" path against a job node. An
// empty selector before "@" reads the attribute off the job node itself.
func selectValue(item *goquery.Selection, path string) interface{} {
	selector := path
	attr := ""
	if idx := strings.LastIndex(path, "@"); idx >= 0 {
		selector = path[:idx]
		attr = path[idx+1:]
	}

	target := item
	if selector != "" {
		target = item.Find(selector).First()
	}
	if target.Length() == 0 {
		return nil
	}
	if attr != "" {
		v, _ := target.Attr(attr)
		return v
	}
	return strings.TrimSpace(target.Text())
}

// absoluteURL resolves a scraped href against the source page URL.
func absoluteURL(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(parsed).String()
}
