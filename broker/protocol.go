package broker

// CommandType identifies a Command's payload. Trading commands are
// numbered above any future administrative ones so a router can
// range-check cheaply.
type CommandType uint8

const (
	CmdUnknown     CommandType = 0
	CmdPlaceOrder  CommandType = 51
	CmdCancelOrder CommandType = 52
)

// Command is the envelope every ingress message is wrapped in: routing
// header plus a lazily-deserialized payload, so a consumer can dispatch
// on Type/Instrument before paying to decode Payload.
type Command struct {
	Version    uint8             `json:"version"`
	Instrument string            `json:"instrument"`
	SeqID      uint64            `json:"seq_id"`
	Type       CommandType       `json:"type"`
	Payload    []byte            `json:"payload"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// PlaceOrderPayload is Command.Payload's shape when Type is
// CmdPlaceOrder. Price is carried as a string to survive the JSON
// round-trip without float precision loss (shopspring/decimal marshals
// this way natively).
type PlaceOrderPayload struct {
	ClientID   int64  `json:"client_id"`
	Instrument string `json:"instrument"`
	Side       string `json:"side"`
	Price      string `json:"price"`
	Quantity   int64  `json:"quantity"`
}

// CancelOrderPayload is Command.Payload's shape when Type is
// CmdCancelOrder.
type CancelOrderPayload struct {
	OrderID uint64 `json:"order_id"`
}

// Serializer is the contract for encoding/decoding Command payloads,
// so a deployment can swap JSON for protobuf or another wire format
// without touching Consumer or TradePublisher.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}
