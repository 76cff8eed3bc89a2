package chat

import (
	"time"

	"github.com/cppla/mediavault/delivery"
)

// Session is the chat gateway boundary for one inbound command. The concrete
// implementation (protocol adapter) lives outside this repository. A session
// doubles as the delivery transport for its channel.
type Session interface {
	// ChannelID is the tenancy key scoping every archive operation.
	ChannelID() string
	// SenderID identifies the requesting actor.
	SenderID() string
	// MessageID identifies the inbound message, kept as provenance.
	MessageID() string
	// RoleFlags returns the actor's role flags inside the channel.
	RoleFlags() []string
	// IsDirect reports a direct/private context.
	IsDirect() bool
	// QuotedMedia returns the normalized image-like elements of the quoted
	// message; empty when the message carries none.
	QuotedMedia() []MediaElement
	// Send delivers a text reply to the channel.
	Send(text string) error
	// AwaitReply blocks for the actor's next message up to timeout; ok is
	// false when the window elapses.
	AwaitReply(timeout time.Duration) (text string, ok bool)

	delivery.Transport
}
