package index

import (
	"fmt"

	"github.com/kornilov-ux/MyMessenger/internal/models"
)

// Stored shape of one index entry:
//
//	{id, other_user_email, name, latest_message: {date, message, is_read}}

func encodeSummary(s models.ConversationSummary) map[string]any {
	return map[string]any{
		"id":               s.ID,
		"other_user_email": s.CounterpartyKey,
		"name":             s.DisplayName,
		"latest_message": map[string]any{
			"date":    s.Latest.DateString,
			"message": s.Latest.Text,
			"is_read": s.Latest.IsRead,
		},
	}
}

func decodeSummary(v any) (models.ConversationSummary, error) {
	var s models.ConversationSummary

	entry, ok := v.(map[string]any)
	if !ok {
		return s, fmt.Errorf("entry is %T, not a map", v)
	}

	if s.ID, ok = entry["id"].(string); !ok {
		return s, fmt.Errorf("entry has no id")
	}
	if s.CounterpartyKey, ok = entry["other_user_email"].(string); !ok {
		return s, fmt.Errorf("entry %q has no counterparty", s.ID)
	}
	if s.DisplayName, ok = entry["name"].(string); !ok {
		return s, fmt.Errorf("entry %q has no display name", s.ID)
	}

	latest, ok := entry["latest_message"].(map[string]any)
	if !ok {
		return s, fmt.Errorf("entry %q has no latest message", s.ID)
	}
	if s.Latest.DateString, ok = latest["date"].(string); !ok {
		return s, fmt.Errorf("entry %q latest message has no date", s.ID)
	}
	if s.Latest.Text, ok = latest["message"].(string); !ok {
		return s, fmt.Errorf("entry %q latest message has no text", s.ID)
	}
	s.Latest.IsRead, _ = latest["is_read"].(bool)

	return s, nil
}
