package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var phrases = []string{"спасибо", "спс", "thanks", "thank you"}

func TestContainsThankPhrase(t *testing.T) {
	assert.True(t, ContainsThankPhrase("Спасибо большое!", phrases))
	assert.True(t, ContainsThankPhrase("THANKS a lot", phrases))
	assert.False(t, ContainsThankPhrase("ну ладно", phrases))
}

func TestContainsThankPhraseSubstring(t *testing.T) {
	// Matching is substring by design: a phrase inside a longer word counts.
	assert.True(t, ContainsThankPhrase("спспспс", phrases))
	assert.True(t, ContainsThankPhrase("megathanksgiving", phrases))
}

func TestContainsThankPhraseEmpty(t *testing.T) {
	assert.False(t, ContainsThankPhrase("", phrases))
	assert.False(t, ContainsThankPhrase("спасибо", nil))
}

func TestAddedReaction(t *testing.T) {
	upd := &MessageReactionUpdated{
		NewReaction: []ReactionType{{Type: "emoji", Emoji: "👍"}},
	}

	emoji, ok := AddedReaction(upd, "👍")
	assert.True(t, ok)
	assert.Equal(t, "👍", emoji)

	_, ok = AddedReaction(upd, "❤️")
	assert.False(t, ok)
}

func TestAddedReactionIgnoresRemovalsAndRepeats(t *testing.T) {
	// The reaction was already there: nothing new was added.
	upd := &MessageReactionUpdated{
		OldReaction: []ReactionType{{Type: "emoji", Emoji: "👍"}},
		NewReaction: []ReactionType{{Type: "emoji", Emoji: "👍"}},
	}
	_, ok := AddedReaction(upd, "👍")
	assert.False(t, ok)

	// Pure removal.
	upd = &MessageReactionUpdated{
		OldReaction: []ReactionType{{Type: "emoji", Emoji: "👍"}},
	}
	_, ok = AddedReaction(upd, "👍")
	assert.False(t, ok)
}

func TestAddedReactionNonEmojiKind(t *testing.T) {
	upd := &MessageReactionUpdated{
		NewReaction: []ReactionType{{Type: "custom_emoji"}},
	}
	_, ok := AddedReaction(upd, "👍")
	assert.False(t, ok)
}

func TestCommandName(t *testing.T) {
	msg := &Message{
		Text:     "/add@reputation_bot some args",
		Entities: []MessageEntity{{Type: "bot_command", Offset: 0, Length: 19}},
	}

	name, args, ok := commandName(msg)
	assert.True(t, ok)
	assert.Equal(t, "add", name)
	assert.Equal(t, "some args", args)
}

func TestCommandNameNotACommand(t *testing.T) {
	msg := &Message{Text: "just text"}
	_, _, ok := commandName(msg)
	assert.False(t, ok)

	// A command in the middle of the text does not count.
	msg = &Message{
		Text:     "see /add",
		Entities: []MessageEntity{{Type: "bot_command", Offset: 4, Length: 4}},
	}
	_, _, ok = commandName(msg)
	assert.False(t, ok)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "alice", displayName(&User{ID: 1, Username: "alice"}))
	assert.Equal(t, "user_7", displayName(&User{ID: 7}))
}

func TestAuthorCacheEvictsOldest(t *testing.T) {
	c := newAuthorCache(2)
	c.remember(1, 1, User{ID: 10})
	c.remember(1, 2, User{ID: 20})
	c.remember(1, 3, User{ID: 30})

	_, ok := c.lookup(1, 1)
	assert.False(t, ok, "oldest entry evicted")

	u, ok := c.lookup(1, 3)
	assert.True(t, ok)
	assert.Equal(t, int64(30), u.ID)
}
