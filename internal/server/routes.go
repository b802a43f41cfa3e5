package server

import "net/http"

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Intake
	mux.HandleFunc("/api/jobs", s.submitJobHandler)           // POST - submit one job posting
	mux.HandleFunc("/api/companies", s.submitCompanyHandler)  // POST - queue company enrichment
	mux.HandleFunc("/api/scrape", s.submitScrapeHandler)      // POST - queue a single-URL scrape
	mux.HandleFunc("/api/jobs/legacy", s.submitLegacyHandler) // POST - replay a scraped_data payload

	// Read side
	mux.HandleFunc("/api/matches", s.listMatchesHandler) // GET - saved matches

	// System. Bare paths are what probes hit; the /api forms match the rest
	// of the surface.
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/api/health", s.healthHandler)
	mux.HandleFunc("/api/status", s.statusHandler)
	mux.HandleFunc("/api/version", s.versionHandler)

	return mux
}
