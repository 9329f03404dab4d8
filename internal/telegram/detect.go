package telegram

import "strings"

// ContainsThankPhrase reports whether text carries one of the configured
// thank phrases. Matching is case-insensitive and substring-based: a phrase
// embedded inside a longer word still counts.
func ContainsThankPhrase(text string, phrases []string) bool {
	if text == "" {
		return false
	}

	lower := strings.ToLower(text)
	for _, phrase := range phrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// AddedReaction returns the emoji that appeared in this reaction change,
// if it matches the configured one. Removals never qualify.
func AddedReaction(upd *MessageReactionUpdated, configured string) (string, bool) {
	if upd == nil || configured == "" {
		return "", false
	}

	old := make(map[string]bool, len(upd.OldReaction))
	for _, r := range upd.OldReaction {
		old[r.Emoji] = true
	}

	for _, r := range upd.NewReaction {
		if r.Type != "emoji" || old[r.Emoji] {
			continue
		}
		if r.Emoji == configured {
			return r.Emoji, true
		}
	}
	return "", false
}
