package scraper

import (
	"encoding/xml"
	"fmt"

	"github.com/ternarybob/venari/internal/models"
)

// RSS 2.0 and Atom feed shapes, reduced to the elements the field map can
// reference.
type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
	Entries []atomEntry `xml:"entry"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Author      string `xml:"author"`
	Category    string `xml:"category"`
	GUID        string `xml:"guid"`
}

type atomEntry struct {
	Title   string `xml:"title"`
	Link    struct {
		Href string `xml:"href,attr"`
	} `xml:"link"`
	Summary string `xml:"summary"`
	Content string `xml:"content"`
	Updated string `xml:"updated"`
	Author  struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

// parseRSS extracts jobs from an RSS or Atom feed. Field paths select feed
// elements by name (title, link, description, pubDate, author, category).
func parseRSS(body []byte, cfg *models.ScrapeConfig) ([]models.NormalizedJob, error) {
	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, models.NewWorkerError(models.ErrParse, fmt.Errorf("source feed: %w", err))
	}

	records := make([]map[string]interface{}, 0, len(feed.Channel.Items)+len(feed.Entries))
	for _, item := range feed.Channel.Items {
		records = append(records, map[string]interface{}{
			"title":       item.Title,
			"link":        item.Link,
			"description": item.Description,
			"pubDate":     item.PubDate,
			"author":      item.Author,
			"category":    item.Category,
			"guid":        item.GUID,
		})
	}
	for _, entry := range feed.Entries {
		description := entry.Content
		if description == "" {
			description = entry.Summary
		}
		records = append(records, map[string]interface{}{
			"title":       entry.Title,
			"link":        entry.Link.Href,
			"description": description,
			"pubDate":     entry.Updated,
			"author":      entry.Author.Name,
		})
	}

	jobs := make([]models.NormalizedJob, 0, len(records))
	for _, record := range records {
		item := record
		job := buildJob(cfg, func(path string) interface{} {
			return resolvePath(item, path)
		})
		if job.Title == "" || job.URL == "" {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
