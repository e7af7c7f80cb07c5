package feed

import (
	"context"
	"encoding/json"
	"time"

	"garm/internal/common"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	tomb "gopkg.in/tomb.v2"
)

const publishQueueSize = 1024

// Publisher pushes executed trades onto a Kafka topic for downstream
// reporting consumers. It satisfies engine.Reporter: ReportTrade only
// enqueues, the produce happens on the publisher's own goroutine.
type Publisher struct {
	writer *kafka.Writer
	queue  chan common.Trade
	t      tomb.Tomb
}

func NewPublisher(brokers []string, topic string) *Publisher {
	p := &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
		queue: make(chan common.Trade, publishQueueSize),
	}
	p.t.Go(p.run)
	return p
}

func (p *Publisher) ReportTrade(trade common.Trade) {
	select {
	case p.queue <- trade:
	case <-p.t.Dying():
	default:
		log.Warn().Uint64("seq", trade.Seq).Msg("trade feed queue full, event dropped")
	}
}

func (p *Publisher) Close() error {
	p.t.Kill(nil)
	err := p.t.Wait()
	if closeErr := p.writer.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (p *Publisher) run() error {
	for {
		select {
		case <-p.t.Dying():
			return nil
		case trade := <-p.queue:
			if err := p.publish(trade); err != nil {
				log.Error().Err(err).Uint64("seq", trade.Seq).Msg("unable to publish trade")
			}
		}
	}
}

func (p *Publisher) publish(trade common.Trade) error {
	value, err := json.Marshal(trade)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(p.t.Context(nil), 5*time.Second)
	defer cancel()
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(trade.Ticker),
		Value: value,
	})
}
