// Package ilo provides access to the management controller's embedded
// health telemetry. The controller is treated as a black box that yields
// one nested telemetry document per poll; everything interesting happens to
// the document afterwards, in the health package.
package ilo

import (
	"context"

	"github.com/sseiler-cboe/hpilo-exporter/health"
)

// Client returns the embedded health document for one poll cycle. A failure
// to produce any document at all is the one cycle-fatal condition; the
// polling loop logs it and retries on the next tick.
type Client interface {
	EmbeddedHealth(ctx context.Context) (health.Document, error)
}
