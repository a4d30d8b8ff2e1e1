// Package broker adapts the engine's submit/cancel operations and trade
// stream to an external message broker, via github.com/segmentio/kafka-go.
// The engine itself has no broker dependency; this package is the
// partitioned, per-instrument-ordered ingress/egress collaborator
// described as an external interface.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"
	kafka "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/quasar-exchange/matching-engine/match"
)

// Router is the subset of *match.Engine the broker adapters depend on,
// kept narrow so tests can fake it without standing up a full engine.
type Router interface {
	Submit(clientID int64, instrument string, side match.Side, price decimal.Decimal, quantity int64) (*match.Order, error)
	Cancel(orderID uint64) bool
}

// jsonSerializer is the default Serializer, plain encoding/json.
type jsonSerializer struct{}

func (jsonSerializer) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonSerializer) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// NewSubmitCommand builds a place-order Command, stamping a fresh
// correlation id into Metadata["request_id"], a client-supplied
// idempotency key opaque to the engine. Deduplication on this key is
// the consumer's responsibility, not the engine's.
func NewSubmitCommand(ser Serializer, clientID int64, instrument string, side match.Side, price decimal.Decimal, quantity int64) (Command, error) {
	payload, err := ser.Marshal(PlaceOrderPayload{
		ClientID:   clientID,
		Instrument: instrument,
		Side:       side.String(),
		Price:      price.String(),
		Quantity:   quantity,
	})
	if err != nil {
		return Command{}, err
	}

	return Command{
		Version:    1,
		Instrument: instrument,
		Type:       CmdPlaceOrder,
		Payload:    payload,
		Metadata:   map[string]string{"request_id": xid.New().String()},
	}, nil
}

// NewCancelCommand builds a cancel-order Command.
func NewCancelCommand(ser Serializer, instrument string, orderID uint64) (Command, error) {
	payload, err := ser.Marshal(CancelOrderPayload{OrderID: orderID})
	if err != nil {
		return Command{}, err
	}

	return Command{
		Version:    1,
		Instrument: instrument,
		Type:       CmdCancelOrder,
		Payload:    payload,
		Metadata:   map[string]string{"request_id": xid.New().String()},
	}, nil
}

func decodeSide(s string) (match.Side, error) {
	switch s {
	case "buy":
		return match.Buy, nil
	case "sell":
		return match.Sell, nil
	default:
		return 0, fmt.Errorf("broker: unknown side %q", s)
	}
}

// Consumer drains a partitioned ingress topic, partitioned by
// instrument so that a single partition's messages preserve
// per-instrument order. It decodes each message into a Command and
// routes it to Router.
type Consumer struct {
	reader *kafka.Reader
	router Router
	ser    Serializer
}

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// NewConsumer returns a Consumer ready to Run, using JSON for command
// and payload decoding. Use WithSerializer to override.
func NewConsumer(cfg ConsumerConfig, router Router) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
			GroupID: cfg.GroupID,
		}),
		router: router,
		ser:    jsonSerializer{},
	}
}

// WithSerializer replaces the Consumer's Command/payload serializer.
func (c *Consumer) WithSerializer(ser Serializer) *Consumer {
	c.ser = ser
	return c
}

// Run drains messages until ctx is cancelled or a read error occurs. A
// decode failure is silently skipped; it never stops the consumer,
// since a single malformed command must not stall its partition.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		var cmd Command
		if err := c.ser.Unmarshal(msg.Value, &cmd); err != nil {
			continue
		}
		c.dispatch(cmd)
	}
}

func (c *Consumer) dispatch(cmd Command) {
	switch cmd.Type {
	case CmdPlaceOrder:
		var payload PlaceOrderPayload
		if err := c.ser.Unmarshal(cmd.Payload, &payload); err != nil {
			return
		}
		side, err := decodeSide(payload.Side)
		if err != nil {
			return
		}
		price, err := decimal.NewFromString(payload.Price)
		if err != nil {
			return
		}
		_, _ = c.router.Submit(payload.ClientID, payload.Instrument, side, price, payload.Quantity)
	case CmdCancelOrder:
		var payload CancelOrderPayload
		if err := c.ser.Unmarshal(cmd.Payload, &payload); err != nil {
			return
		}
		c.router.Cancel(payload.OrderID)
	}
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// TradePublisher publishes trades to an egress topic, partitioned by
// instrument so that a downstream consumer sees each instrument's
// trades in emission order. Implements match.TradeSink.
type TradePublisher struct {
	writer *kafka.Writer
}

// NewTradePublisher returns a TradePublisher writing to topic.
func NewTradePublisher(brokers []string, topic string) *TradePublisher {
	return &TradePublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireOne,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
			Balancer:     &kafka.Hash{},
		},
	}
}

// tradeWireFormat is the JSON shape published for one trade.
type tradeWireFormat struct {
	TradeID       uint64          `json:"trade_id"`
	Instrument    string          `json:"instrument"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int64           `json:"quantity"`
	TakerOrderID  uint64          `json:"taker_order_id"`
	MakerOrderID  uint64          `json:"maker_order_id"`
	TakerClientID int64           `json:"taker_client_id"`
	MakerClientID int64           `json:"maker_client_id"`
	Timestamp     time.Time       `json:"timestamp"`
}

// OnTrade publishes trade to the egress topic, keyed by instrument.
// Marshal and write errors are discarded: OnTrade neither returns nor
// logs them, and it does not panic on them.
func (p *TradePublisher) OnTrade(trade *match.Trade) {
	payload, err := json.Marshal(tradeWireFormat{
		TradeID:       trade.TradeID,
		Instrument:    trade.Instrument,
		Price:         trade.Price,
		Quantity:      trade.Quantity,
		TakerOrderID:  trade.TakerOrderID,
		MakerOrderID:  trade.MakerOrderID,
		TakerClientID: trade.TakerClientID,
		MakerClientID: trade.MakerClientID,
		Timestamp:     trade.Timestamp,
	})
	if err != nil {
		return
	}

	_ = p.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(trade.Instrument),
		Value: payload,
	})
}

// Close releases the underlying writer.
func (p *TradePublisher) Close() error {
	return p.writer.Close()
}
