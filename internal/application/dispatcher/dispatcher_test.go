package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/fund-review/internal/domain/event"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, fmt.Sprint(append([]interface{}{msg}, keysAndValues...)...))
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func TestDispatch_RunsHandlersInOrder(t *testing.T) {
	d := NewDispatcher(WithLogger(&mockLogger{}))

	var order []string
	d.SubscribeNamed(event.TypeApplicationSubmitted, "first", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "first")
		return nil
	})
	d.SubscribeNamed(event.TypeApplicationSubmitted, "second", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "second")
		return nil
	})
	d.Subscribe(event.TypeApplicationRejected, func(ctx context.Context, evt *event.Event) error {
		order = append(order, "other")
		return nil
	})

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeApplicationSubmitted, 1, 2, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatch_NoHandlers(t *testing.T) {
	d := NewDispatcher()
	assert.NoError(t, d.Dispatch(context.Background(), event.NewEvent(event.TypeReimbursementCreated, 1, 1, nil)))
}

func TestDispatch_FailingHandlerDoesNotStopOthers(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))
	boom := errors.New("mail server down")

	called := false
	d.SubscribeNamed(event.TypeApplicationAdvanced, "mailer", func(ctx context.Context, evt *event.Event) error {
		return boom
	})
	d.SubscribeNamed(event.TypeApplicationAdvanced, "audit", func(ctx context.Context, evt *event.Event) error {
		called = true
		return nil
	})

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeApplicationAdvanced, 1, 2, nil))
	assert.ErrorIs(t, err, boom)
	assert.True(t, called)
	assert.Equal(t, 1, logger.ErrorCount())
}

func TestDispatch_RecoversPanic(t *testing.T) {
	d := NewDispatcher()
	d.SubscribeNamed(event.TypeReimbursementRejected, "panicky", func(ctx context.Context, evt *event.Event) error {
		panic("nil map")
	})

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeReimbursementRejected, 1, 2, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler panic")
}

func TestUnsubscribe(t *testing.T) {
	d := NewDispatcher()
	noop := func(ctx context.Context, evt *event.Event) error { return nil }
	d.SubscribeNamed(event.TypeApplicationApproved, "a", noop)
	d.SubscribeNamed(event.TypeApplicationApproved, "b", noop)

	d.Unsubscribe(event.TypeApplicationApproved, "a")

	handlers := d.ListHandlers(event.TypeApplicationApproved)
	require.Len(t, handlers, 1)
	assert.Equal(t, "b", handlers[0].Name)
	assert.Nil(t, handlers[0].Handler)
}

func TestSubscribeNamedDescribe(t *testing.T) {
	d := NewDispatcher()
	noop := func(ctx context.Context, evt *event.Event) error { return nil }
	d.SubscribeNamed(event.TypeApplicationRejected, "mailer", noop, Describe("mails the applicant"))
	d.SubscribeNamed(event.TypeApplicationRejected, "audit", noop)

	handlers := d.ListHandlers(event.TypeApplicationRejected)
	require.Len(t, handlers, 2)
	assert.Equal(t, "mails the applicant", handlers[0].Description)
	assert.Empty(t, handlers[1].Description)
	assert.Equal(t, event.TypeApplicationRejected, handlers[0].EventType)
}

func TestClose(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Close())
	assert.Error(t, d.Close())

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeApplicationSubmitted, 1, 1, nil))
	assert.ErrorIs(t, err, ErrClosed)
}
