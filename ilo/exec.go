package ilo

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/sseiler-cboe/hpilo-exporter/health"
)

// DefaultTimeout bounds one health dump. The iLO channel on a loaded host
// can take tens of seconds; three minutes matches the slowest observed
// GET_EMBEDDED_HEALTH round trip with margin.
const DefaultTimeout = 3 * time.Minute

// CommandClient obtains the health document by running an external dump
// command (typically the hpilo-health helper, which handles the hponcfg
// privilege escalation) and decoding its JSON output.
type CommandClient struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// NewCommandClient returns a client that runs command with args.
func NewCommandClient(command string, args ...string) *CommandClient {
	return &CommandClient{Command: command, Args: args, Timeout: DefaultTimeout}
}

// EmbeddedHealth implements Client.
func (c *CommandClient) EmbeddedHealth(ctx context.Context) (health.Document, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, c.Command, c.Args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("health dump command %q: %w: %s", c.Command, err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("health dump command %q: %w", c.Command, err)
	}
	return decodeDocument(output)
}

func decodeDocument(data []byte) (health.Document, error) {
	var doc health.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding health document: %w", err)
	}
	return doc, nil
}
