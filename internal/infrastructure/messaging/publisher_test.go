package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xiebiao/library/internal/domain/reservation"
	"github.com/xiebiao/library/pkg/circuitbreaker"
)

type fakeBroker struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (b *fakeBroker) Publish(ctx context.Context, routingKey string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.keys = append(b.keys, routingKey)
	return nil
}

func (b *fakeBroker) Exchange() string { return "library.test" }

func testEvent(t reservation.EventType) reservation.Event {
	r := reservation.NewReservation(1, 2, "Dune", time.Now(), reservation.DefaultDuration)
	r.ID = 3
	return reservation.NewEvent(t, r, time.Now())
}

func TestReservationEventPublisher_Publish(t *testing.T) {
	broker := &fakeBroker{}
	p := NewReservationEventPublisher(broker, zaptest.NewLogger(t))

	require.NoError(t, p.Publish(context.Background(), testEvent(reservation.EventCreated)))
	require.NoError(t, p.Publish(context.Background(), testEvent(reservation.EventReturned)))

	assert.Equal(t, []string{"reservation.created", "reservation.returned"}, broker.keys)
}

func TestReservationEventPublisher_BreakerOpens(t *testing.T) {
	broker := &fakeBroker{err: errors.New("connection reset")}
	p := NewReservationEventPublisher(broker, zaptest.NewLogger(t))

	for i := 0; i < 5; i++ {
		assert.Error(t, p.Publish(context.Background(), testEvent(reservation.EventDeleted)))
	}

	broker.err = nil
	err := p.Publish(context.Background(), testEvent(reservation.EventDeleted))
	assert.ErrorIs(t, err, circuitbreaker.ErrOpenState)
	assert.Empty(t, broker.keys)
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher{}.Publish(context.Background(), testEvent(reservation.EventCreated)))
}
