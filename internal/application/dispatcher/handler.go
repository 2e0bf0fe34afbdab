package dispatcher

import (
	"context"
	"fmt"

	"github.com/garyjia/fund-review/internal/domain/event"
)

// Handler reacts to a committed workflow event
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes one subscription. ListHandlers returns it without Handler.
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Description string
	Handler     Handler
}

// HandlerOption adjusts a subscription as it is registered
type HandlerOption func(*HandlerInfo)

// Describe attaches a human readable purpose shown by ListHandlers
func Describe(text string) HandlerOption {
	return func(info *HandlerInfo) {
		info.Description = text
	}
}

// run calls the handler and turns a panic into an error
func (h HandlerInfo) run(ctx context.Context, evt *event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handler(ctx, evt)
}
