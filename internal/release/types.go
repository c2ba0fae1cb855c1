package release

import (
	"errors"

	"github.com/gosuda/releasebot/internal/messenger"
)

// ErrUnauthorizedChannel is the guided no-op for triggers outside the authorized channel.
var ErrUnauthorizedChannel = errors.New("release: channel not authorized") //nolint:gochecknoglobals // sentinel error

// TriggerKind distinguishes the inbound events the controller reacts to.
type TriggerKind int

const (
	KindMention TriggerKind = iota + 1
	KindButtonClick
)

func (k TriggerKind) String() string {
	switch k {
	case KindMention:
		return "mention"
	case KindButtonClick:
		return "button_click"
	default:
		return "unknown"
	}
}

// MessageRef identifies a chat message by channel and timestamp.
type MessageRef struct {
	Channel   string
	Timestamp messenger.MessageID
}

// IsZero reports whether the reference points at no message.
func (r MessageRef) IsZero() bool {
	return r.Channel == "" || r.Timestamp == ""
}

// TriggerEvent is one inbound mention or button click. It lives only for the
// duration of its handling.
type TriggerEvent struct {
	Kind     TriggerKind
	Channel  string
	User     string
	ActionID ActionID   // button clicks only
	Message  MessageRef // button clicks only: the message carrying the button

	// Ack acknowledges receipt to the platform. Transports that have already
	// acknowledged leave it nil; it must be safe to call more than once.
	Ack func()
}

func (e TriggerEvent) ack() {
	if e.Ack != nil {
		e.Ack()
	}
}

// MessageState is the rendered state of a release message.
type MessageState int

const (
	StateIdle MessageState = iota
	StateProcessing
	StateSuccess
	StateError
)

func (s MessageState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition follows s within one trigger.
func (s MessageState) Terminal() bool {
	return s == StateSuccess || s == StateError
}
