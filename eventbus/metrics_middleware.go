package eventbus

import (
	"context"

	"github.com/jeeves-cluster-organization/agentkernel/observability"
)

// MetricsMiddleware records the heartbeat counter for TypeHeartbeatSent and
// the pending-timeout counter for TypePendingRequestExpired after each
// publish (other event types record nothing), implemented as middleware
// rather than hand-wired into every emit call site, per §4.12.
type MetricsMiddleware struct{}

func (MetricsMiddleware) Before(ctx context.Context, ev Event) (Event, error) {
	return ev, nil
}

func (MetricsMiddleware) After(ctx context.Context, ev Event, err error) {
	switch ev.Type() {
	case TypeHeartbeatSent:
		observability.RecordHeartbeat("sent")
	case TypePendingRequestExpired:
		observability.RecordPendingTimeout()
	}
}

var _ Middleware = MetricsMiddleware{}
