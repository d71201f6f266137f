package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/radar/adapter"
	"github.com/pithecene-io/radar/log"
	"github.com/pithecene-io/radar/types"
)

// DefaultNotifyTimeout bounds a single adapter publish.
const DefaultNotifyTimeout = 10 * time.Second

// NotifierConfig configures a Notifier.
type NotifierConfig struct {
	// Adapter receives forwarded alerts (required).
	Adapter adapter.Adapter
	// Endpoint is stamped on every alert.
	Endpoint types.Endpoint
	// MinSeverity is the lowest severity forwarded (default CRITICAL).
	MinSeverity *types.Severity
	// Timeout bounds each publish, including adapter retries.
	Timeout time.Duration
	// Logger is optional.
	Logger *log.Logger
}

// Notifier forwards elevated events from a Subscription to an adapter.
// Lifecycle signals are not forwarded. Publish failures are logged and
// never interrupt ingestion.
type Notifier struct {
	adapter     adapter.Adapter
	endpoint    types.Endpoint
	minSeverity types.Severity
	timeout     time.Duration
	logger      *log.Logger
	newID       func() string

	published int
	failed    int
}

// NewNotifier creates a Notifier.
func NewNotifier(cfg NotifierConfig) (*Notifier, error) {
	if cfg.Adapter == nil {
		return nil, errors.New("notifier requires an adapter")
	}
	n := &Notifier{
		adapter:     cfg.Adapter,
		endpoint:    cfg.Endpoint,
		minSeverity: types.SeverityCritical,
		timeout:     cfg.Timeout,
		logger:      cfg.Logger,
		newID:       uuid.NewString,
	}
	if cfg.MinSeverity != nil {
		n.minSeverity = *cfg.MinSeverity
	}
	if n.timeout <= 0 {
		n.timeout = DefaultNotifyTimeout
	}
	return n, nil
}

// Run forwards events until ctx is canceled or sub is closed.
// Returns the number of alerts published and failed.
func (n *Notifier) Run(ctx context.Context, sub *Subscription) (published, failed int) {
	for {
		select {
		case <-ctx.Done():
			return n.published, n.failed
		case sig, ok := <-sub.C():
			if !ok {
				return n.published, n.failed
			}
			_ = n.Handle(ctx, sig)
		}
	}
}

// Handle forwards sig if it is an event at or above the minimum severity.
// Skipped signals return nil. A publish failure is logged and returned.
func (n *Notifier) Handle(ctx context.Context, sig types.Signal) error {
	if sig.Kind != types.SignalEvent || sig.Event == nil {
		return nil
	}
	if !sig.Event.Severity.AtLeast(n.minSeverity) {
		return nil
	}

	alert := adapter.NewAlertEvent(n.newID(), n.endpoint, *sig.Event)

	publishCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.adapter.Publish(publishCtx, alert); err != nil {
		n.failed++
		n.logger.Error("alert publish failed", map[string]any{
			"alert_id": alert.AlertID,
			"severity": alert.Severity,
			"error":    err.Error(),
		})
		return err
	}
	n.published++
	n.logger.Debug("alert published", map[string]any{
		"alert_id": alert.AlertID,
		"severity": alert.Severity,
	})
	return nil
}
