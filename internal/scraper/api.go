package scraper

import (
	"encoding/json"
	"fmt"

	"github.com/ternarybob/venari/internal/models"
)

// parseAPI extracts jobs from a JSON response. response_path locates the
// jobs array; field paths are resolved against each item.
func parseAPI(body []byte, cfg *models.ScrapeConfig) ([]models.NormalizedJob, error) {
	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, models.NewWorkerError(models.ErrParse, fmt.Errorf("source json: %w", err))
	}

	located := resolvePath(decoded, cfg.ResponsePath)
	items, ok := located.([]interface{})
	if !ok {
		if located == nil {
			return nil, models.Errorf(models.ErrParse, "response_path %q matched nothing", cfg.ResponsePath)
		}
		return nil, models.Errorf(models.ErrParse, "response_path %q is not an array", cfg.ResponsePath)
	}

	jobs := make([]models.NormalizedJob, 0, len(items))
	for _, item := range items {
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
