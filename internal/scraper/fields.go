package scraper

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/venari/internal/models"
)

// resolvePath walks a dotted path with optional slice steps through decoded
// JSON. Steps: "jobs" (map key), "[0]" (index), "[1:]" (python-style slice).
// A missing step returns nil.
func resolvePath(data interface{}, path string) interface{} {
	if path == "" {
		return data
	}
	current := data
	for _, step := range strings.Split(path, ".") {
		if current == nil {
			return nil
		}
		if strings.HasPrefix(step, "[") && strings.HasSuffix(step, "]") {
			current = applySliceStep(current, strings.Trim(step, "[]"))
			continue
		}
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = m[step]
	}
	return current
}

// applySliceStep handles "[n]" and "[a:b]" steps on a JSON array.
func applySliceStep(data interface{}, spec string) interface{} {
	arr, ok := data.([]interface{})
	if !ok {
		return nil
	}
	if !strings.Contains(spec, ":") {
		idx, err := strconv.Atoi(spec)
		if err != nil || idx < 0 || idx >= len(arr) {
			return nil
		}
		return arr[idx]
	}

	parts := strings.SplitN(spec, ":", 2)
	start, end := 0, len(arr)
	if parts[0] != "" {
		if v, err := strconv.Atoi(parts[0]); err == nil {
			start = v
		}
	}
	if parts[1] != "" {
		if v, err := strconv.Atoi(parts[1]); err == nil {
			end = v
		}
	}
	if start < 0 {
		start = 0
	}
	if end > len(arr) {
		end = len(arr)
	}
	if start >= end {
		return []interface{}{}
	}
	return arr[start:end]
}

// stringValue coerces a resolved value to a string.
func stringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

// intValue coerces a resolved value to an int, stripping currency noise
// from strings.
func intValue(v interface{}) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		cleaned := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, t)
		if cleaned == "" {
			return 0
		}
		n, _ := strconv.Atoi(cleaned)
		return n
	}
	return 0
}

// coerceDate normalizes a posted-date value to ISO-8601. Numeric values are
// treated as unix timestamps, in milliseconds when large enough.
func coerceDate(v interface{}) string {
	switch t := v.(type) {
	case float64:
		return unixToISO(int64(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return ""
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return unixToISO(n)
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02", time.RFC1123Z, time.RFC1123, time.RFC822Z} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC().Format(time.RFC3339)
			}
		}
		return s
	}
	return ""
}

func unixToISO(n int64) string {
	if n <= 0 {
		return ""
	}
	// Millisecond timestamps are 13 digits for contemporary dates.
	if n > 1e12 {
		n /= 1000
	}
	return time.Unix(n, 0).UTC().Format(time.RFC3339)
}

// buildJob assembles a normalized job from a per-field value accessor.
// The accessor receives the configured path for each output field.
func buildJob(cfg *models.ScrapeConfig, value func(path string) interface{}) models.NormalizedJob {
	job := models.NormalizedJob{}
	for field, path := range cfg.Fields {
		v := value(path)
		switch field {
		case "title":
			job.Title = stringValue(v)
		case "company":
			job.Company = stringValue(v)
		case "location":
			job.Location = stringValue(v)
		case "description":
			job.Description = stringValue(v)
		case "url":
			job.URL = stringValue(v)
		case "posted_date":
			job.PostedDate = coerceDate(v)
		case "salary":
			job.Salary = stringValue(v)
		}
	}
	if cfg.SalaryMinField != "" {
		job.SalaryMin = intValue(value(cfg.SalaryMinField))
	}
	if cfg.SalaryMaxField != "" {
		job.SalaryMax = intValue(value(cfg.SalaryMaxField))
	}
	if job.Company == "" {
		job.Company = cfg.CompanyName
	}
	return job
}
