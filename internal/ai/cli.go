package ai

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

// DefaultCLITimeout bounds one subprocess invocation.
const DefaultCLITimeout = 180 * time.Second

// CLIProvider runs a local model binary as a subprocess. The prompt goes
// to stdin, the completion comes back on stdout. Token usage is estimated
// because local binaries report none.
type CLIProvider struct {
	command string
	args    []string
	timeout time.Duration
	logger  arbor.ILogger
}

// NewCLIProvider creates a subprocess-backed provider from the configured
// command line, e.g. "ollama run llama3".
func NewCLIProvider(command string, logger arbor.ILogger) (*CLIProvider, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, models.Errorf(models.ErrMissingConfig, "cli agent requires a command")
	}
	if _, err := exec.LookPath(parts[0]); err != nil {
		return nil, models.Errorf(models.ErrMissingConfig, "cli agent binary not found: %s", parts[0])
	}
	return &CLIProvider{
		command: parts[0],
		args:    parts[1:],
		timeout: DefaultCLITimeout,
		logger:  logger,
	}, nil
}

func (p *CLIProvider) ProviderName() string { return "cli" }

// GenerateContent pipes the flattened conversation through the subprocess.
func (p *CLIProvider) GenerateContent(ctx context.Context, req *interfaces.ContentRequest) (*interfaces.ContentResponse, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var prompt strings.Builder
	if req.System != "" {
		prompt.WriteString(req.System)
		prompt.WriteString("\n\n")
	}
	for _, m := range req.Messages {
		prompt.WriteString(m.Content)
		prompt.WriteString("\n")
	}

	cmd := exec.CommandContext(timeoutCtx, p.command, p.args...)
	cmd.Stdin = strings.NewReader(prompt.String())
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if timeoutCtx.Err() != nil {
			return nil, models.NewWorkerError(models.ErrTransientNetwork, fmt.Errorf("cli agent timed out: %w", timeoutCtx.Err()))
		}
		return nil, models.NewWorkerError(models.ErrPermanentSource, fmt.Errorf("cli agent failed: %w: %s", err, strings.TrimSpace(stderr.String())))
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return nil, models.Errorf(models.ErrParse, "cli agent returned no output")
	}

	p.logger.Debug().
		Str("command", p.command).
		Int("output_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("CLI agent completion finished")

	return &interfaces.ContentResponse{
		Text:         text,
		Model:        req.Model,
		Provider:     p.ProviderName(),
		InputTokens:  EstimateTokens(prompt.String()),
		OutputTokens: EstimateTokens(text),
	}, nil
}

func (p *CLIProvider) Close() error { return nil }
