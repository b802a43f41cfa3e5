package processors

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

func TestGreenhouseConfig(t *testing.T) {
	cfg := greenhouseConfig("acme", "Acme")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, models.SourceTypeAPI, cfg.Type)
	assert.Equal(t, "https://boards-api.greenhouse.io/v1/boards/acme/jobs?content=true", cfg.URL)
	assert.Equal(t, "jobs", cfg.ResponsePath)
	assert.Equal(t, "absolute_url", cfg.Fields["url"])
	assert.Equal(t, "location.name", cfg.Fields["location"])
}

func TestLeverConfig(t *testing.T) {
	cfg := leverConfig("globex", "Globex")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://api.lever.co/v0/postings/globex?mode=json", cfg.URL)
	assert.Equal(t, "hostedUrl", cfg.Fields["url"])
	assert.Empty(t, cfg.ResponsePath) // lever answers a bare array
}

func TestWorkdayConfig(t *testing.T) {
	cfg := workdayConfig("https://mdlz.wd1.myworkdayjobs.com/external", "Mondelez International")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, models.SourceTypeHTML, cfg.Type)
	assert.NotEmpty(t, cfg.JobSelector)
}

func TestLooksLikeFeed(t *testing.T) {
	assert.True(t, looksLikeFeed("https://acme.example/careers/feed.xml"))
	assert.True(t, looksLikeFeed("https://acme.example/jobs.rss"))
	assert.True(t, looksLikeFeed("https://acme.example/careers/feed"))
	assert.False(t, looksLikeFeed("https://acme.example/careers"))
}

func TestIsFeedBody(t *testing.T) {
	assert.True(t, isFeedBody(`<?xml version="1.0"?><rss version="2.0"><channel></channel></rss>`))
	assert.True(t, isFeedBody(`<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	assert.False(t, isFeedBody(`<html><body>careers</body></html>`))
}

func TestProbeSelectorsFindsJobList(t *testing.T) {
	var items strings.Builder
	for i := 0; i < 6; i++ {
		items.WriteString(`<li class="opening"><a href="/jobs/` + string(rune('a'+i)) + `">Job</a></li>`)
	}
	body := "<html><body><ul>" + items.String() + "</ul></body></html>"

	cfg, confidence, err := probeSelectors(body, "https://acme.example/careers", "Acme")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, models.SourceTypeHTML, cfg.Type)
	assert.Equal(t, "li.opening", cfg.JobSelector)
	assert.Equal(t, models.ConfidenceMedium, confidence)
}

func TestProbeSelectorsWeakMatchIsLowConfidence(t *testing.T) {
	body := `<html><body><ul>
		<li class="opening"><a href="/jobs/1">One</a></li>
		<li class="opening"><a href="/jobs/2">Two</a></li>
	</ul></body></html>`

	cfg, confidence, err := probeSelectors(body, "https://acme.example/careers", "Acme")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, models.ConfidenceLow, confidence)
}

func TestProbeSelectorsNoPlausibleList(t *testing.T) {
	body := `<html><body><p>We are not hiring.</p></body></html>`

	cfg, confidence, err := probeSelectors(body, "https://acme.example/careers", "Acme")
	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.Empty(t, confidence)
}

func TestProbeSelectorsRequiresLinks(t *testing.T) {
	body := `<html><body><ul>
		<li class="opening">No link</li>
		<li class="opening">Still no link</li>
		<li class="opening">None</li>
	</ul></body></html>`

	cfg, _, err := probeSelectors(body, "https://acme.example/careers", "Acme")
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

// careersPage builds an HTML job list whose item class is not in the
// heuristic selector set.
func careersPage(items int) string {
	var b strings.Builder
	b.WriteString("<html><body><div class='roles'>")
	for i := 0; i < items; i++ {
		b.WriteString(`<div class="vacancy"><h3>Engineer</h3><a href="/jobs/` + string(rune('a'+i)) + `">Apply</a></div>`)
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

func discoveryTask(t *testing.T, url string) *models.Task {
	t.Helper()
	task, err := models.NewTask(models.TaskKindSourceDiscovery, url, &models.SourceDiscoveryPayload{
		URL:         url,
		CompanyName: "Acme",
	}, 3)
	require.NoError(t, err)
	return task
}

func TestDiscoveryFallsBackToAgentSelectors(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	proc := NewDiscoveryProcessor(f.deps)

	f.fetcher.body = careersPage(6)
	f.agent.proposal = &interfaces.SelectorProposal{
		JobSelector: "div.vacancy",
		Fields:      map[string]string{"title": "h3", "url": "a@href"},
	}

	task := discoveryTask(t, "https://acme.example/careers")
	status, err := proc.Process(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusSuccess, status)
	assert.Equal(t, 1, f.agent.proposeCalls)

	source, err := f.store.SourceStorage().FindSourceByURL(ctx, "https://acme.example/careers")
	require.NoError(t, err)
	assert.Equal(t, models.SourceTypeHTML, source.SourceType)
	assert.Equal(t, "div.vacancy", source.Config.JobSelector)
	assert.Equal(t, "h3", source.Config.Fields["title"])
	assert.Equal(t, models.ConfidenceLow, source.DiscoveryConfidence)
	assert.Equal(t, models.SourceStatusPendingValidation, source.Status)

	scrapes, err := f.store.TaskStorage().FindLineageTasks(ctx, task.TrackingID, "https://acme.example/careers", models.TaskKindScrapeSource)
	require.NoError(t, err)
	assert.Len(t, scrapes, 1)
}

func TestDiscoveryRejectsUnverifiedProposal(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	proc := NewDiscoveryProcessor(f.deps)

	f.fetcher.body = careersPage(6)
	// The proposed selector does not match anything on the sampled page.
	f.agent.proposal = &interfaces.SelectorProposal{JobSelector: "ul.jobs li"}

	task := discoveryTask(t, "https://acme.example/careers")
	status, err := proc.Process(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusSkipped, status)

	_, err = f.store.SourceStorage().FindSourceByURL(ctx, "https://acme.example/careers")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestDiscoveryWithoutSelectorAgent(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	proc := NewDiscoveryProcessor(f.deps)

	f.fetcher.body = careersPage(6)
	f.agent.proposeErr = models.Errorf(models.ErrMissingConfig, "no agent configured for selector_discovery")

	task := discoveryTask(t, "https://acme.example/careers")
	status, err := proc.Process(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusSkipped, status)
}

func TestSourceFailureAutoDisable(t *testing.T) {
	now := time.Now().UTC()
	source := &models.JobSource{Status: models.SourceStatusActive}

	for i := 0; i < 4; i++ {
		assert.False(t, source.RecordFailure(5, now))
	}
	assert.True(t, source.RecordFailure(5, now))
	assert.Equal(t, models.SourceStatusDisabled, source.Status)

	// A later success resets the counter but does not re-enable.
	source.RecordSuccess(now)
	assert.Zero(t, source.ConsecutiveFailures)
	assert.Equal(t, models.SourceStatusDisabled, source.Status)
}
