package probe

import (
	"context"

	"github.com/hamed0406/serverwatch/internal/domain"
)

// Prober performs a single query against one endpoint and normalizes the
// backend's response into a ServiceStatus. Failures are *Error values
// classified by Kind; business-level absence of data (zero members) is a
// success, not an error.
type Prober interface {
	Probe(ctx context.Context, endpoint string) (domain.ServiceStatus, error)
}

// Releaser is implemented by probers that hold per-endpoint connection
// resources. The resolver releases the previously active endpoint when
// failover switches to another one.
type Releaser interface {
	Release(endpoint string)
}
