package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"car-market-lab/internal/analytics"
	"car-market-lab/internal/domain"
	"car-market-lab/internal/filter"
)

// Client message types.
const (
	MsgSetPrimary       = "set_primary"
	MsgAddComparison    = "add_comparison"
	MsgRemoveComparison = "remove_comparison"
	MsgUpdateComparison = "update_comparison"
	MsgSetWeights       = "set_weights"
	MsgSetMetric        = "set_metric"
	MsgSetProjection    = "set_projection"
	MsgRecompute        = "recompute"
)

// Server message types.
const (
	MsgHello   = "hello"
	MsgDerived = "derived"
	MsgPending = "pending"
	MsgError   = "error"
)

// ErrUnknownMessage is returned for an unrecognized client message type.
var ErrUnknownMessage = errors.New("unknown message type")

// ClientMessage is one mutation sent over the websocket.
// Only the fields relevant to Type are read. Weights is merged onto the
// session's current weights.
type ClientMessage struct {
	Type       string                       `json:"type"`
	Index      *int                         `json:"index,omitempty"`
	Filter     *domain.FilterSet            `json:"filter,omitempty"`
	Weights    json.RawMessage              `json:"weights,omitempty"`
	Metric     string                       `json:"metric,omitempty"`
	Projection *analytics.ProjectionRequest `json:"projection,omitempty"`
}

// ServerMessage is pushed to the client.
type ServerMessage struct {
	Type      string             `json:"type"`
	SessionID string             `json:"session_id"`
	Seq       int                `json:"seq,omitempty"`
	Request   string             `json:"request,omitempty"`
	Error     string             `json:"error,omitempty"`
	Status    *analytics.Status  `json:"status,omitempty"`
	State     *filter.State      `json:"state,omitempty"`
	Options   *analytics.Options `json:"options,omitempty"`
	Derived   *analytics.Derived `json:"derived,omitempty"`
}

// RecomputeRequest is the body of POST /api/recompute.
// Omitted options fall back to the server defaults.
type RecomputeRequest struct {
	State   *filter.State      `json:"state"`
	Options *analytics.Options `json:"options"`
}

// ErrorResponse is the JSON body of failed HTTP requests.
type ErrorResponse struct {
	Error string `json:"error"`
	State string `json:"state,omitempty"`
}

// apply mutates state and opts according to msg.
// newComparison supplies the default set for an add without a filter.
func apply(msg ClientMessage, state *filter.State, opts *analytics.Options, newComparison func() domain.FilterSet) error {
	switch msg.Type {
	case MsgSetPrimary:
		if msg.Filter == nil {
			return fmt.Errorf("%s: missing filter", msg.Type)
		}
		fs := *msg.Filter
		state.UpdatePrimary(func(p *domain.FilterSet) { *p = fs })
		return nil

	case MsgAddComparison:
		fs := newComparison()
		if msg.Filter != nil {
			fs = *msg.Filter
		}
		_, err := state.AddComparison(fs)
		return err

	case MsgRemoveComparison:
		if msg.Index == nil {
			return fmt.Errorf("%s: missing index", msg.Type)
		}
		return state.RemoveComparison(*msg.Index)

	case MsgUpdateComparison:
		if msg.Index == nil || msg.Filter == nil {
			return fmt.Errorf("%s: missing index or filter", msg.Type)
		}
		fs := *msg.Filter
		return state.UpdateComparison(*msg.Index, func(c *domain.FilterSet) { *c = fs })

	case MsgSetWeights:
		if len(msg.Weights) == 0 || string(msg.Weights) == "null" {
			return fmt.Errorf("%s: missing weights", msg.Type)
		}
		// omitted weights keep their current values
		w := opts.Weights
		if err := json.Unmarshal(msg.Weights, &w); err != nil {
			return fmt.Errorf("%s: decode weights: %w", msg.Type, err)
		}
		opts.Weights = w.Clamp()
		return nil

	case MsgSetMetric:
		metric, err := analytics.ParseValueMetric(msg.Metric)
		if err != nil {
			return err
		}
		opts.ValueMetric = metric
		return nil

	case MsgSetProjection:
		// nil clears the projection
		opts.Projection = msg.Projection
		return nil

	case MsgRecompute:
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

// decodeClientMessage parses one websocket frame.
func decodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("decode message: %w", err)
	}
	return msg, nil
}
