package messenger

import "context"

// MessageID uniquely identifies a message within a messenger platform.
// On Slack this is the message timestamp.
type MessageID string

// ButtonStyle is the visual emphasis of an interactive button.
type ButtonStyle string

const (
	// ButtonStyleDefault renders the platform's neutral button.
	ButtonStyleDefault ButtonStyle = ""
	// ButtonStylePrimary renders an emphasized (green on Slack) button.
	ButtonStylePrimary ButtonStyle = "primary"
	// ButtonStyleDanger renders a destructive (red on Slack) button.
	ButtonStyleDanger ButtonStyle = "danger"
)

// Button is a clickable action attached to a message.
type Button struct {
	ActionID string      `json:"action_id"` // identifier delivered back on click
	Label    string      `json:"label"`     // display text
	Style    ButtonStyle `json:"style,omitempty"`
	Value    string      `json:"value,omitempty"`
}

// Message is a platform-agnostic rendering of a chat message: a markdown body
// followed by an optional row of buttons.
type Message struct {
	// Text is the plain fallback shown in notifications and by clients that cannot render Body.
	Text    string   `json:"text"`
	Body    string   `json:"body,omitempty"`
	Buttons []Button `json:"buttons,omitempty"`
}

// Messenger abstracts communication with a chat platform.
// Implementations handle platform-specific API calls; the interface is platform-agnostic.
type Messenger interface {
	// PostMessage posts a message to a channel and returns its platform message ID.
	PostMessage(ctx context.Context, channelID string, msg Message) (MessageID, error)

	// UpdateMessage rewrites an existing message in place.
	UpdateMessage(ctx context.Context, channelID string, messageID MessageID, msg Message) error

	// PostEphemeral posts a message in a channel that only userID can see.
	PostEphemeral(ctx context.Context, channelID, userID, text string) error

	// Platform returns the messenger platform identifier (e.g. "slack").
	Platform() string
}
