package alertbus

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"overwatch/pkg/shared"
)

// FanoutWorker pull-consumes the durable OVERWATCH_ALERTS stream and
// forwards each message into the local Bus, adapted from the teacher's
// pkg/services/workers/{base,telemetry}.go pull-consumer pattern. This
// decouples local subscriber delivery from the direct Publish call made by
// the ingest pipeline: an instance that was down when an alert was
// published still observes it once it drains the durable consumer.
// Processes that bind the same durable consumer share its messages, so each
// message reaches only one of them.
type FanoutWorker struct {
	nc       *nats.Conn
	js       nats.JetStreamContext
	bus      *Bus
	sub      *nats.Subscription
	consumer string
	stream   string
	subject  string
}

func NewFanoutWorker(en *EmbeddedNATS, bus *Bus) *FanoutWorker {
	return &FanoutWorker{
		nc:       en.Connection(),
		js:       en.JetStream(),
		bus:      bus,
		stream:   shared.StreamAlerts,
		consumer: shared.ConsumerAlertFanout,
		subject:  shared.SubjectAlertsAll,
	}
}

func (w *FanoutWorker) Name() string { return "AlertFanoutWorker" }

func (w *FanoutWorker) Start(ctx context.Context) error {
	if err := w.ensureConsumer(); err != nil {
		return err
	}

	sub, err := w.js.PullSubscribe(w.subject, "",
		nats.Durable(w.consumer),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.DeliverAll(),
		nats.Bind(w.stream, w.consumer),
	)
	if err != nil {
		return err
	}
	w.sub = sub

	log.Printf("[%s] started on stream %s, consumer %s", w.Name(), w.stream, w.consumer)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msgs, err := sub.Fetch(10, nats.MaxWait(2*time.Second))
			if err != nil && err != nats.ErrTimeout {
				log.Printf("[%s] fetch error: %v", w.Name(), err)
				continue
			}
			for _, msg := range msgs {
				w.handle(msg)
				if err := msg.Ack(); err != nil {
					log.Printf("[%s] ack error: %v", w.Name(), err)
				}
			}
		}
	}
}

func (w *FanoutWorker) handle(msg *nats.Msg) {
	var event shared.PushEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Printf("[%s] malformed payload: %v", w.Name(), err)
		return
	}
	w.bus.deliverRaw(msg.Data)
}

func (w *FanoutWorker) ensureConsumer() error {
	if _, err := w.js.ConsumerInfo(w.stream, w.consumer); err == nil {
		return nil
	}
	_, err := w.js.AddConsumer(w.stream, &nats.ConsumerConfig{
		Durable:       w.consumer,
		FilterSubject: w.subject,
		AckPolicy:     nats.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
		DeliverPolicy: nats.DeliverNewPolicy,
	})
	return err
}

func (w *FanoutWorker) Stop() error {
	if w.sub != nil {
		return w.sub.Drain()
	}
	return nil
}
