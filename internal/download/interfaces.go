package download

import (
	"context"

	"github.com/ytget/dit/internal/model"
)

// Resolver turns an item reference URL into concrete download targets.
// *finder.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) ([]model.DownloadTarget, error)
}

// Listener receives download events. Listeners are never invoked concurrently.
type Listener func(model.Event)
