// Package rabbitmq connects the broker carrying recommendation records and
// hosts the record publisher.
package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const healthcheckQueue = "careercompass.healthcheck"

// New dials the record broker and verifies it answers channel operations
// within the startup deadline.
func New(ctx context.Context, url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial record broker failed: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open record broker channel failed: %w", err)
	}
	defer ch.Close()

	done := make(chan error, 1)
	go func() {
		_, queueErr := ch.QueueDeclarePassive(
			healthcheckQueue,
			false,
			false,
			false,
			false,
			nil,
		)
		done <- queueErr
	}()

	select {
	case <-checkCtx.Done():
		_ = conn.Close()
		return nil, fmt.Errorf("record broker health check timeout: %w", checkCtx.Err())
	case err := <-done:
		// A passive declare of an absent queue errors, but any answer at all
		// proves the broker is reachable. Connection and channel failures were
		// already handled above.
		_ = err
		return conn, nil
	}
}
