package network

import (
	"context"

	"snak8s/logging"
)

const (
	// EventInboundDropped is emitted when a client frame cannot be decoded or applied.
	EventInboundDropped logging.EventType = "network.inbound_dropped"
	// EventOutboundDropped is emitted when a frame is skipped because the client send queue is full.
	EventOutboundDropped logging.EventType = "network.outbound_dropped"
)

// InboundDroppedPayload describes a rejected client frame.
type InboundDroppedPayload struct {
	Reason string `json:"reason"`
	Bytes  int    `json:"bytes"`
}

// OutboundDroppedPayload describes skipped frames for a slow client.
type OutboundDroppedPayload struct {
	Dropped uint64 `json:"dropped"`
}

// InboundDropped publishes a warning for a malformed or unknown client frame.
func InboundDropped(ctx context.Context, pub logging.Publisher, connID string, payload InboundDroppedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventInboundDropped,
		Actor:    logging.EntityRef{ID: connID, Kind: logging.EntityKindConn},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// OutboundDropped publishes a warning when a client falls behind the broadcast rate.
func OutboundDropped(ctx context.Context, pub logging.Publisher, connID string, payload OutboundDroppedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventOutboundDropped,
		Actor:    logging.EntityRef{ID: connID, Kind: logging.EntityKindConn},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
