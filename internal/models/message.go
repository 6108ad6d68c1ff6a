// Package models holds the in-memory chat entities: the message-kind union,
// the per-conversation message, and the per-user conversation summary.
package models

import "time"

// Kind is the closed union of message content kinds. Only types in this
// package implement it, so a type switch over Kind is exhaustive.
type Kind interface {
	messageKind()
}

// TextKind is a plain text message.
type TextKind struct {
	Text string
}

// AttributedTextKind carries styled text; only the raw text survives storage.
type AttributedTextKind struct {
	Text string
}

// PhotoKind references an uploaded image. URL is empty until the upload
// resolves.
type PhotoKind struct {
	URL string
}

// VideoKind references an uploaded video. URL is empty until the upload
// resolves.
type VideoKind struct {
	URL string
}

// LocationKind is a geographic point.
type LocationKind struct {
	Longitude float64
	Latitude  float64
}

// EmojiKind is a single large emoji message.
type EmojiKind struct {
	Emoji string
}

// AudioKind references an uploaded voice message.
type AudioKind struct {
	URL string
}

// ContactKind shares a contact card.
type ContactKind struct {
	Name  string
	Phone string
}

// LinkKind is a link preview.
type LinkKind struct {
	URL   string
	Title string
}

// CustomKind is an application-defined payload opaque to this layer.
type CustomKind struct {
	Payload any
}

func (TextKind) messageKind()           {}
func (AttributedTextKind) messageKind() {}
func (PhotoKind) messageKind()          {}
func (VideoKind) messageKind()          {}
func (LocationKind) messageKind()       {}
func (EmojiKind) messageKind()          {}
func (AudioKind) messageKind()          {}
func (ContactKind) messageKind()        {}
func (LinkKind) messageKind()           {}
func (CustomKind) messageKind()         {}

// Message is one entry of a conversation's log.
type Message struct {
	ID         string
	SenderKey  string
	SenderName string
	SentAt     time.Time
	IsRead     bool
	Kind       Kind
}
