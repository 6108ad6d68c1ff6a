package models

// LatestMessage is the denormalized preview stored inside a conversation
// summary.
type LatestMessage struct {
	DateString string
	Text       string
	IsRead     bool
}

// ConversationSummary is one entry of a user's conversation index. Each
// conversation is stored twice, once under each participant, with
// CounterpartyKey and DisplayName mirrored; the two copies are not required
// to be byte-identical.
type ConversationSummary struct {
	ID              string
	CounterpartyKey string
	DisplayName     string
	Latest          LatestMessage
}

// User is an account entry in the user directory.
type User struct {
	FirstName string
	LastName  string
	Email     string
}

// DisplayName is the name shown for the user in counterpart summaries.
func (u User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
