package control

import (
	"context"

	"codeberg.org/mutker/powerhald/internal/codec"
	"codeberg.org/mutker/powerhald/internal/errors"
	"codeberg.org/mutker/powerhald/internal/hint"
	"codeberg.org/mutker/powerhald/internal/power"
	"codeberg.org/mutker/powerhald/internal/profile"
)

// Action names.
const (
	ActionHint        = "hint"
	ActionInteractive = "interactive"
	ActionProfile     = "profile"
	ActionStatus      = "status"
	ActionGetFeature  = "get_feature"
	ActionSetFeature  = "set_feature"
)

// Dispatcher is the subset of power.HAL the socket exposes.
type Dispatcher interface {
	SetInteractive(ctx context.Context, on bool)
	PowerHint(ctx context.Context, kind hint.Kind, payload int32) error
	GetFeature(f power.Feature) int32
	SetFeature(ctx context.Context, f power.Feature, state int32) error
	Status() power.Status
}

type hintRequest struct {
	Kind    uint32 `cbor:"kind"`
	Payload *int32 `cbor:"payload"`
}

type interactiveRequest struct {
	On *bool `cbor:"on"`
}

type profileRequest struct {
	Profile *int32 `cbor:"profile"`
}

type featureRequest struct {
	Feature uint32 `cbor:"feature"`
	State   int32  `cbor:"state"`
}

// FeatureValue is the reply to ActionGetFeature.
type FeatureValue struct {
	Value int32 `cbor:"value"`
}

// Register binds every action to d.
func Register(s *SocketServer, d Dispatcher) {
	s.Handle(ActionHint, func(ctx context.Context, raw []byte) (any, error) {
		var req hintRequest
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		kind := hint.Kind(req.Kind)
		if req.Payload == nil {
			if kind == hint.SetProfile {
				return nil, errors.New().WithMessage(errors.ErrInvalidArgument, "missing required field: payload")
			}
			return nil, d.PowerHint(ctx, kind, 0)
		}
		return nil, d.PowerHint(ctx, kind, *req.Payload)
	})

	s.Handle(ActionInteractive, func(ctx context.Context, raw []byte) (any, error) {
		var req interactiveRequest
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		if req.On == nil {
			return nil, errors.New().WithMessage(errors.ErrInvalidArgument, "missing required field: on")
		}
		d.SetInteractive(ctx, *req.On)
		return nil, nil
	})

	// profile is a set-profile hint with the id as payload
	s.Handle(ActionProfile, func(ctx context.Context, raw []byte) (any, error) {
		var req profileRequest
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		if req.Profile == nil {
			return nil, errors.New().WithMessage(errors.ErrInvalidArgument, "missing required field: profile")
		}
		return nil, d.PowerHint(ctx, hint.SetProfile, *req.Profile)
	})

	s.Handle(ActionStatus, func(_ context.Context, _ []byte) (any, error) {
		return d.Status(), nil
	})

	s.Handle(ActionGetFeature, func(_ context.Context, raw []byte) (any, error) {
		var req featureRequest
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		return FeatureValue{Value: d.GetFeature(power.Feature(req.Feature))}, nil
	})

	s.Handle(ActionSetFeature, func(ctx context.Context, raw []byte) (any, error) {
		var req featureRequest
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		return nil, d.SetFeature(ctx, power.Feature(req.Feature), req.State)
	})
}

func decode(raw []byte, v any) error {
	if err := codec.Unmarshal(raw, v); err != nil {
		return errors.New().Wrap(errors.ErrInvalidArgument, err)
	}
	return nil
}

// Hint sends a power hint.
func (c *Client) Hint(ctx context.Context, kind hint.Kind, payload int32) error {
	return c.Call(ctx, ActionHint, map[string]any{"kind": uint32(kind), "payload": payload}, nil)
}

// SetInteractive sends an interactivity transition.
func (c *Client) SetInteractive(ctx context.Context, on bool) error {
	return c.Call(ctx, ActionInteractive, map[string]any{"on": on}, nil)
}

// SetProfile selects a power profile.
func (c *Client) SetProfile(ctx context.Context, id profile.ID) error {
	return c.Call(ctx, ActionProfile, map[string]any{"profile": int32(id)}, nil)
}

// Status fetches the daemon's status.
func (c *Client) Status(ctx context.Context) (power.Status, error) {
	var status power.Status
	err := c.Call(ctx, ActionStatus, nil, &status)
	return status, err
}

// GetFeature reads a feature value.
func (c *Client) GetFeature(ctx context.Context, f power.Feature) (int32, error) {
	var value FeatureValue
	err := c.Call(ctx, ActionGetFeature, map[string]any{"feature": uint32(f)}, &value)
	return value.Value, err
}

// SetFeature writes a feature value.
func (c *Client) SetFeature(ctx context.Context, f power.Feature, state int32) error {
	return c.Call(ctx, ActionSetFeature, map[string]any{"feature": uint32(f), "state": state}, nil)
}
