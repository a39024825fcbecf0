package service

import (
	"context"

	"github.com/khoahotran/devconnect/internal/domain/profile"
)

// EventPublisher announces profile lifecycle and account events. Callers
// treat publishing as best effort.
type EventPublisher interface {
	PublishProfileEvent(ctx context.Context, evt profile.Event) error
}
