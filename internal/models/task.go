package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskKind identifies the processor a task is routed to.
type TaskKind string

const (
	TaskKindCompany         TaskKind = "company"
	TaskKindJobListing      TaskKind = "job_listing"
	TaskKindScrape          TaskKind = "scrape"
	TaskKindSourceDiscovery TaskKind = "source_discovery"
	TaskKindScrapeSource    TaskKind = "scrape_source"
)

// TaskStatus is the queue-level lifecycle state of a task.
// Success, Filtered, Skipped and Failed are terminal.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusSuccess    TaskStatus = "success"
	TaskStatusFiltered   TaskStatus = "filtered"
	TaskStatusSkipped    TaskStatus = "skipped"
	TaskStatusFailed     TaskStatus = "failed"
)

// taskTransitions is the allowed task state machine.
// failed -> pending is the internal retry path only; it is observable
// as a retry_count increment on the same task record.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:    {TaskStatusProcessing},
	TaskStatusProcessing: {TaskStatusSuccess, TaskStatusFiltered, TaskStatusSkipped, TaskStatusFailed, TaskStatusPending},
	TaskStatusFailed:     {TaskStatusPending},
}

// CanTransition reports whether moving from one task status to another is legal.
func (s TaskStatus) CanTransition(to TaskStatus) bool {
	for _, allowed := range taskTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the task's lifecycle.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusSuccess, TaskStatusFiltered, TaskStatusSkipped, TaskStatusFailed:
		return true
	}
	return false
}

// PipelineState holds lightweight status metadata for observability.
// It never carries durable intermediate data used for routing.
type PipelineState struct {
	Stage              string `json:"stage,omitempty"`
	CompanyWaitRetries int    `json:"company_wait_retries,omitempty"`
	ListingID          string `json:"listing_id,omitempty"`
}

// TaskAttempt records one lease of a task.
type TaskAttempt struct {
	LeasedAt    time.Time `json:"leased_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Task is the unit of work processed by the worker.
type Task struct {
	ID     string     `json:"id" badgerhold:"key"`
	Kind   TaskKind   `json:"kind" badgerhold:"index"`
	Status TaskStatus `json:"status" badgerhold:"index"`

	// Payload is the kind-specific tagged payload, decoded via the
	// typed accessors below.
	Payload json.RawMessage `json:"payload"`

	// TargetURL is the normalized URL this task operates on. Used by
	// spawn safety and lineage deduplication.
	TargetURL string `json:"target_url" badgerhold:"index"`

	PipelineState PipelineState `json:"pipeline_state"`

	TrackingID    string   `json:"tracking_id" badgerhold:"index"`
	AncestryChain []string `json:"ancestry_chain,omitempty"`
	SpawnDepth    int      `json:"spawn_depth"`

	RetryCount int           `json:"retry_count"`
	MaxRetries int           `json:"max_retries"`
	Attempts   []TaskAttempt `json:"attempts,omitempty"`

	DependsOnTaskID string `json:"depends_on_task_id,omitempty"`

	ErrorDetails string `json:"error_details,omitempty"`

	// VisibleAt gates leasing: a task is leasable once VisibleAt has
	// passed. Backoff delays and lease timeouts both move it forward.
	VisibleAt time.Time `json:"visible_at"`

	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// CompanyPayload is the payload for TaskKindCompany.
type CompanyPayload struct {
	CompanyName string `json:"company_name"`
	URL         string `json:"url,omitempty"`
}

// JobListingPayload is the payload for TaskKindJobListing and TaskKindScrape.
// Exactly one of ListingID or ScrapedData is expected; URL covers manual
// submissions that have not been scraped yet.
type JobListingPayload struct {
	ListingID   string         `json:"listing_id,omitempty"`
	URL         string         `json:"url,omitempty"`
	CompanyName string         `json:"company_name,omitempty"`
	ScrapedData *NormalizedJob `json:"scraped_data,omitempty"`
}

// SourceDiscoveryPayload is the payload for TaskKindSourceDiscovery.
type SourceDiscoveryPayload struct {
	URL         string `json:"url"`
	CompanyID   string `json:"company_id,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
}

// ScrapeSourcePayload is the payload for TaskKindScrapeSource.
type ScrapeSourcePayload struct {
	SourceID string `json:"source_id"`
}

// NewTask creates a root task (spawn depth 0) with a fresh tracking ID.
func NewTask(kind TaskKind, targetURL string, payload interface{}, maxRetries int) (*Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Task{
		ID:         uuid.New().String(),
		Kind:       kind,
		Status:     TaskStatusPending,
		Payload:    data,
		TargetURL:  targetURL,
		TrackingID: uuid.New().String(),
		SpawnDepth: 0,
		MaxRetries: maxRetries,
		VisibleAt:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// NewChildTask creates a child task inheriting the parent's lineage.
// Spawn safety checks are the queue's responsibility, not this constructor's.
func NewChildTask(parent *Task, kind TaskKind, targetURL string, payload interface{}, maxRetries int) (*Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	chain := make([]string, 0, len(parent.AncestryChain)+1)
	chain = append(chain, parent.AncestryChain...)
	chain = append(chain, parent.ID)
	return &Task{
		ID:            uuid.New().String(),
		Kind:          kind,
		Status:        TaskStatusPending,
		Payload:       data,
		TargetURL:     targetURL,
		TrackingID:    parent.TrackingID,
		AncestryChain: chain,
		SpawnDepth:    parent.SpawnDepth + 1,
		MaxRetries:    maxRetries,
		VisibleAt:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// CompanyPayload decodes the task payload as a CompanyPayload.
func (t *Task) CompanyPayload() (*CompanyPayload, error) {
	var p CompanyPayload
	if err := json.Unmarshal(t.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// JobListingPayload decodes the task payload as a JobListingPayload.
func (t *Task) JobListingPayload() (*JobListingPayload, error) {
	var p JobListingPayload
	if err := json.Unmarshal(t.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SourceDiscoveryPayload decodes the task payload as a SourceDiscoveryPayload.
func (t *Task) SourceDiscoveryPayload() (*SourceDiscoveryPayload, error) {
	var p SourceDiscoveryPayload
	if err := json.Unmarshal(t.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ScrapeSourcePayload decodes the task payload as a ScrapeSourcePayload.
func (t *Task) ScrapeSourcePayload() (*ScrapeSourcePayload, error) {
	var p ScrapeSourcePayload
	if err := json.Unmarshal(t.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
