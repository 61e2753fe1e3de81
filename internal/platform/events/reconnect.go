package events

import (
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// ReconnectDelay is the pause between redial attempts after the broker
// connection drops.
const ReconnectDelay = 5 * time.Second

var ErrConnectionClosed = errors.New("broker connection closed")

// ReconnectingConnection keeps a broker connection open. It watches the
// current connection and redials after it drops; channels requested while
// the broker is away fail until a redial succeeds.
type ReconnectingConnection struct {
	dial   func() (NotifyingConnection, error)
	delay  time.Duration
	logger zerolog.Logger

	mu     sync.RWMutex
	conn   NotifyingConnection
	closed bool
	done   chan struct{}
}

// DialReconnecting connects to url and redials whenever the connection is
// lost.
func DialReconnecting(url string, logger zerolog.Logger) (*ReconnectingConnection, error) {
	return newReconnecting(func() (NotifyingConnection, error) { return Dial(url) }, ReconnectDelay, logger)
}

func newReconnecting(dial func() (NotifyingConnection, error), delay time.Duration, logger zerolog.Logger) (*ReconnectingConnection, error) {
	conn, err := dial()
	if err != nil {
		return nil, err
	}
	r := &ReconnectingConnection{
		dial:   dial,
		delay:  delay,
		logger: logger.With().Str("component", "amqp").Logger(),
		conn:   conn,
		done:   make(chan struct{}),
	}
	go r.watch(conn)
	return r, nil
}

func (r *ReconnectingConnection) watch(conn NotifyingConnection) {
	for conn != nil {
		lost := conn.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-r.done:
			return
		case amqpErr := <-lost:
			if r.isClosed() {
				return
			}
			reason := "closed"
			if amqpErr != nil {
				reason = amqpErr.Error()
			}
			r.logger.Warn().Str("reason", reason).Dur("retry_in", r.delay).Msg("broker connection lost, redialing")
		}
		conn = r.redial()
	}
}

// redial retries until it connects or Close is called, in which case it
// returns nil.
func (r *ReconnectingConnection) redial() NotifyingConnection {
	for attempt := 1; ; attempt++ {
		select {
		case <-r.done:
			return nil
		case <-time.After(r.delay):
		}

		conn, err := r.dial()
		if err != nil {
			r.logger.Warn().Err(err).Int("attempt", attempt).Msg("broker redial failed")
			continue
		}

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			_ = conn.Close()
			return nil
		}
		r.conn = conn
		r.mu.Unlock()
		r.logger.Info().Int("attempt", attempt).Msg("broker connection restored")
		return conn
	}
}

func (r *ReconnectingConnection) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

func (r *ReconnectingConnection) Channel() (Channel, error) {
	r.mu.RLock()
	conn, closed := r.conn, r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrConnectionClosed
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("broker unavailable: %w", err)
	}
	return ch, nil
}

// Close stops redialing and closes the current connection.
func (r *ReconnectingConnection) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	conn := r.conn
	r.mu.Unlock()
	return conn.Close()
}
