package application

import "context"

// Worker runs a background loop until ctx is canceled.
type Worker interface {
	Start(ctx context.Context)
}
