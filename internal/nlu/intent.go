package nlu

import (
	"errors"
	"fmt"
	"strings"
)

// Action is the inventory operation a command asks for.
type Action string

const (
	ActionAdd  Action = "add"
	ActionSell Action = "sell"
)

// ParseAction normalises s into an Action.
func ParseAction(s string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionAdd:
		return ActionAdd, true
	case ActionSell:
		return ActionSell, true
	}
	return "", false
}

// SourceFallback tags intents produced by the local parser.
const SourceFallback = "fallback"

// Intent is the structured form of an inventory command.
type Intent struct {
	Action   Action   `json:"action"`
	Product  string   `json:"product"`
	Quantity float64  `json:"quantity"`
	Price    *float64 `json:"price"`
	Source   string   `json:"source"`
}

// Outcome is either a resolved intent or a request for clarification.
type Outcome struct {
	Intent        Intent
	Clarification string
}

// Resolved reports whether the outcome carries a usable intent.
func (o Outcome) Resolved() bool {
	return o.Clarification == ""
}

var (
	// ErrUpstreamUnavailable means no remote provider is configured or allowed for this call.
	ErrUpstreamUnavailable = errors.New("nlu upstream unavailable")
	// ErrUpstreamTimeout means the remote call hit its deadline and was cancelled.
	ErrUpstreamTimeout = errors.New("nlu upstream timeout")
	// ErrAmbiguousCommand means no product name could be extracted.
	ErrAmbiguousCommand = errors.New("could not tell which product the command is about")
)

// UpstreamError is a non-success answer from the text-generation provider.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s request failed: status=%d body=%s", e.Provider, e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// MalformedResponseError means the model output could not be turned into a valid intent.
type MalformedResponseError struct {
	Reason string
	Field  string
}

func (e *MalformedResponseError) Error() string {
	if e.Field == "" {
		return "malformed response: " + e.Reason
	}
	return fmt.Sprintf("malformed response: %s: %s", e.Field, e.Reason)
}

// Error kinds exposed to API clients.
const (
	KindUpstreamUnavailable = "upstream_unavailable"
	KindUpstreamError       = "upstream_error"
	KindUpstreamTimeout     = "upstream_timeout"
	KindMalformedResponse   = "malformed_response"
	KindAmbiguousCommand    = "ambiguous_command"
)

// Kind classifies err into one of the Kind constants, or "" when it is not an nlu error.
func Kind(err error) string {
	var upstream *UpstreamError
	var malformed *MalformedResponseError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUpstreamUnavailable):
		return KindUpstreamUnavailable
	case errors.Is(err, ErrUpstreamTimeout):
		return KindUpstreamTimeout
	case errors.Is(err, ErrAmbiguousCommand):
		return KindAmbiguousCommand
	case errors.As(err, &malformed):
		return KindMalformedResponse
	case errors.As(err, &upstream):
		return KindUpstreamError
	}
	return ""
}
