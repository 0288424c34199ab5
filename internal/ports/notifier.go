package ports

import (
	"context"

	"github.com/alejandrodnm/wagerbook/internal/domain"
)

// EventSink recibe las transiciones ya confirmadas.
type EventSink interface {
	// Publish is called after commit. An error is logged by the caller and
	// never rolls the transition back.
	Publish(ctx context.Context, ev domain.Event) error
}
