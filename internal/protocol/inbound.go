// Package protocol defines the wire events exchanged with chat clients.
// Inbound payloads are decoded and validated here, before they reach the
// room dispatcher, so the dispatcher only ever sees a closed set of variants.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	ErrMalformed = errors.New("malformed event payload")
	ErrInvalid   = errors.New("invalid event payload")
)

var validate = validator.New()

// Inbound is one decoded client event.
type Inbound interface{ inbound() }

type Join struct {
	Username string `json:"username" validate:"max=128"`
}

type Message struct {
	Text string `json:"text" validate:"max=4096"`
	ID   string `json:"id,omitempty" validate:"max=64"`
}

type Typing struct{}

type StopTyping struct{}

type Leave struct{}

// Unknown carries an unrecognized type tag through to the dispatcher,
// which logs and drops it.
type Unknown struct {
	Type string
}

func (Join) inbound()       {}
func (Message) inbound()    {}
func (Typing) inbound()     {}
func (StopTyping) inbound() {}
func (Leave) inbound()      {}
func (Unknown) inbound()    {}

// DecodeInbound parses a raw client frame discriminated by its "type" field.
func DecodeInbound(data []byte) (Inbound, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case "join":
		var p Join
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		return p, nil
	case "message":
		var p Message
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		return p, nil
	case "typing":
		return Typing{}, nil
	case "stopTyping":
		return StopTyping{}, nil
	case "leave":
		return Leave{}, nil
	default:
		return Unknown{Type: env.Type}, nil
	}
}
