// Package codec converts between in-memory messages and the flat field
// records the store keeps. Classification, preview extraction and the wire
// field names live here so every producer and consumer agrees on them.
package codec

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kornilov-ux/MyMessenger/internal/keyx"
	"github.com/kornilov-ux/MyMessenger/internal/models"
)

// TypeTag is the short stable tag stored in a record's "type" field.
type TypeTag string

const (
	TagText           TypeTag = "text"
	TagAttributedText TypeTag = "attributed_text"
	TagPhoto          TypeTag = "photo"
	TagVideo          TypeTag = "video"
	TagLocation       TypeTag = "location"
	TagEmoji          TypeTag = "emoji"
	TagAudio          TypeTag = "audio"
	TagContact        TypeTag = "contact"
	TagLink           TypeTag = "link"
	TagCustom         TypeTag = "customc"
)

var (
	// ErrMissingField reports a stored record lacking a required field.
	ErrMissingField = errors.New("missing field")
	// ErrUnknownType reports a type tag outside the fixed enumeration, or a
	// known tag whose decoder is not implemented yet.
	ErrUnknownType = errors.New("unknown message type")
)

// Classify maps a message kind to its type tag. The union is closed, so the
// mapping is total; the error return guards against a Kind value from
// outside this module.
func Classify(k models.Kind) (TypeTag, error) {
	switch k.(type) {
	case models.TextKind:
		return TagText, nil
	case models.AttributedTextKind:
		return TagAttributedText, nil
	case models.PhotoKind:
		return TagPhoto, nil
	case models.VideoKind:
		return TagVideo, nil
	case models.LocationKind:
		return TagLocation, nil
	case models.EmojiKind:
		return TagEmoji, nil
	case models.AudioKind:
		return TagAudio, nil
	case models.ContactKind:
		return TagContact, nil
	case models.LinkKind:
		return TagLink, nil
	case models.CustomKind:
		return TagCustom, nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnknownType, k)
	}
}

// PreviewText extracts the canonical textual payload of a message. The same
// string becomes both the index entry's latest-message preview and the log
// record's content field, so preview and history never diverge.
func PreviewText(k models.Kind) string {
	switch k := k.(type) {
	case models.TextKind:
		return k.Text
	case models.PhotoKind:
		return k.URL
	case models.VideoKind:
		return k.URL
	case models.LocationKind:
		lon := strconv.FormatFloat(k.Longitude, 'f', -1, 64)
		lat := strconv.FormatFloat(k.Latitude, 'f', -1, 64)
		return lon + "," + lat
	default:
		return ""
	}
}

// Encode flattens a message into the field record stored in a conversation
// log.
func Encode(m models.Message) (map[string]any, error) {
	tag, err := Classify(m.Kind)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":           m.ID,
		"type":         string(tag),
		"content":      PreviewText(m.Kind),
		"date":         keyx.FormatDate(m.SentAt),
		"sender_email": m.SenderKey,
		"is_read":      m.IsRead,
		"name":         m.SenderName,
	}, nil
}

// Decode rebuilds a message from a stored field record.
//
// Only the text kind round-trips for now; every other tag, known or not,
// reports ErrUnknownType until its decoder is added. An unparsable date
// fails the same way as a missing field.
func Decode(record map[string]any) (models.Message, error) {
	var m models.Message

	id, err := stringField(record, "id")
	if err != nil {
		return m, err
	}
	content, err := stringField(record, "content")
	if err != nil {
		return m, err
	}
	sender, err := stringField(record, "sender_email")
	if err != nil {
		return m, err
	}
	typeTag, err := stringField(record, "type")
	if err != nil {
		return m, err
	}
	dateStr, err := stringField(record, "date")
	if err != nil {
		return m, err
	}
	name, err := stringField(record, "name")
	if err != nil {
		return m, err
	}

	sentAt, err := time.Parse(keyx.DateLayout, dateStr)
	if err != nil {
		return m, fmt.Errorf("%w: date %q", ErrMissingField, dateStr)
	}

	var kind models.Kind
	switch TypeTag(typeTag) {
	case TagText:
		kind = models.TextKind{Text: content}
	case TagAttributedText, TagPhoto, TagVideo, TagLocation,
		TagEmoji, TagAudio, TagContact, TagLink, TagCustom:
		return m, fmt.Errorf("%w: no decoder for %q", ErrUnknownType, typeTag)
	default:
		return m, fmt.Errorf("%w: %q", ErrUnknownType, typeTag)
	}

	isRead, _ := record["is_read"].(bool)

	return models.Message{
		ID:         id,
		SenderKey:  sender,
		SenderName: name,
		SentAt:     sentAt,
		IsRead:     isRead,
		Kind:       kind,
	}, nil
}

func stringField(record map[string]any, key string) (string, error) {
	v, ok := record[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingField, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is not a string", ErrMissingField, key)
	}
	return s, nil
}
