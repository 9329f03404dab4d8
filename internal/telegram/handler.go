package telegram

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/t03ya/ratingMKC/internal/config"
	"github.com/t03ya/ratingMKC/internal/models"
	"github.com/t03ya/ratingMKC/internal/rank"
	"github.com/t03ya/ratingMKC/internal/services"
	"github.com/t03ya/ratingMKC/internal/ws"
)

type UpdateHandler struct {
	client     *Client
	events     *services.EventService
	ledger     *services.LedgerService
	cooldown   *services.CooldownService
	reconciler *Reconciler
	cleaner    *Cleaner
	hub        *ws.Hub
	policy     config.Policy
	operatorID int64
	authors    *authorCache
}

func NewUpdateHandler(
	client *Client,
	events *services.EventService,
	ledger *services.LedgerService,
	cooldown *services.CooldownService,
	reconciler *Reconciler,
	cleaner *Cleaner,
	hub *ws.Hub,
	policy config.Policy,
	operatorID int64,
) *UpdateHandler {
	return &UpdateHandler{
		client:     client,
		events:     events,
		ledger:     ledger,
		cooldown:   cooldown,
		reconciler: reconciler,
		cleaner:    cleaner,
		hub:        hub,
		policy:     policy,
		operatorID: operatorID,
		authors:    newAuthorCache(4096),
	}
}

func (h *UpdateHandler) Handle(upd Update) {
	if upd.MessageReaction != nil {
		h.handleReaction(upd.MessageReaction)
		return
	}
	if upd.Message != nil {
		h.handleMessage(upd.Message)
	}
}

func (h *UpdateHandler) handleMessage(msg *Message) {
	if len(msg.NewChatMembers) > 0 {
		h.registerNewMembers(msg.Chat.ID, msg.NewChatMembers)
		return
	}

	if msg.From == nil || msg.From.IsBot {
		return
	}

	// Needed later to resolve reaction targets.
	h.authors.remember(msg.Chat.ID, msg.MessageID, *msg.From)

	if name, args, ok := commandName(msg); ok {
		h.dispatchCommand(msg, name, args)
		return
	}

	if msg.ReplyToMessage != nil && msg.Text != "" {
		h.handleThankReply(msg)
	}
}

// registerNewMembers creates a zero-point entry as soon as someone joins,
// so later triggers never have to report "user not found".
func (h *UpdateHandler) registerNewMembers(chatID int64, members []User) {
	for _, m := range members {
		if m.IsBot {
			continue
		}
		name := displayName(&m)
		_, err := h.ledger.Upsert(chatID, m.ID, func(prior models.LedgerEntry) models.LedgerEntry {
			next := prior
			if next.DisplayName == "" {
				next.DisplayName = name
			}
			return next
		})
		if err != nil {
			log.Printf("auto-register: chat %d user %d: %v", chatID, m.ID, err)
			continue
		}
		log.Printf("auto-register: chat %d user %d (@%s)", chatID, m.ID, name)
	}
}

func (h *UpdateHandler) handleThankReply(msg *Message) {
	if !ContainsThankPhrase(msg.Text, h.policy.ThankPhrases) {
		return
	}

	target := msg.ReplyToMessage.From
	if target == nil || target.IsBot {
		return
	}

	if target.ID == msg.From.ID {
		h.sendEphemeral(msg.Chat.ID, msg.MessageID, "❌ Нельзя благодарить самого себя.", HintDeleteDelay)
		return
	}

	allowed, wait, err := h.cooldown.TryConsume(msg.Chat.ID, msg.From.ID, time.Now())
	if err != nil {
		// Fail open: a broken cooldown store must not eat thanks.
		log.Printf("cooldown: chat %d user %d: %v", msg.Chat.ID, msg.From.ID, err)
	} else if !allowed {
		log.Printf("cooldown: chat %d user %d denied, %s left", msg.Chat.ID, msg.From.ID, wait.Round(time.Second))
		return
	}

	res, err := h.events.ApplyEvent(services.Event{
		ChatID:     msg.Chat.ID,
		ActorID:    msg.From.ID,
		TargetID:   target.ID,
		TargetName: displayName(target),
		Delta:      1,
		Source:     services.SourceThank,
	})
	if err != nil {
		log.Printf("thank event: chat %d target %d: %v", msg.Chat.ID, target.ID, err)
		return
	}

	ack := "✅ +1 балл за благодарность!"
	if res.SyncErr != nil {
		ack = "✅ +1 балл за благодарность! (префикс обновить не удалось)"
	}
	h.sendEphemeral(msg.Chat.ID, msg.MessageID, ack, AckDeleteDelay)

	h.afterMutation(msg.Chat.ID, target.ID, displayName(target), res)
}

func (h *UpdateHandler) handleReaction(r *MessageReactionUpdated) {
	if r.User == nil || r.User.IsBot {
		return
	}

	if _, ok := AddedReaction(r, h.policy.ReactionEmoji); !ok {
		return
	}

	author, ok := h.authors.lookup(r.Chat.ID, r.MessageID)
	if !ok || author.IsBot {
		return
	}
	if author.ID == r.User.ID {
		return
	}

	allowed, _, err := h.cooldown.TryConsume(r.Chat.ID, r.User.ID, time.Now())
	if err != nil {
		log.Printf("cooldown: chat %d user %d: %v", r.Chat.ID, r.User.ID, err)
	} else if !allowed {
		return
	}

	res, err := h.events.ApplyEvent(services.Event{
		ChatID:     r.Chat.ID,
		ActorID:    r.User.ID,
		TargetID:   author.ID,
		TargetName: displayName(&author),
		Delta:      1,
		Source:     services.SourceReaction,
	})
	if err != nil {
		log.Printf("reaction event: chat %d target %d: %v", r.Chat.ID, author.ID, err)
		return
	}

	h.afterMutation(r.Chat.ID, author.ID, displayName(&author), res)
}

// afterMutation fans out everything that follows a successful point change:
// rank-up notification and the dashboard broadcast.
func (h *UpdateHandler) afterMutation(chatID, userID int64, name string, res *services.ApplyResult) {
	h.hub.Broadcast(chatID, ws.WSMessage{
		Type: "points_changed",
		Data: map[string]interface{}{
			"user_id":      userID,
			"display_name": name,
			"points":       res.NewPoints,
			"tier":         res.NewTier.String(),
			"title_synced": res.TitleSynced,
		},
	})

	if res.TierChanged {
		h.notifyRankUp(chatID, name, res.OldTier, res.NewTier)
	}
}

func (h *UpdateHandler) notifyRankUp(chatID int64, name string, oldTier, newTier rank.Tier) {
	// Dropping a tier is recorded and broadcast but not celebrated.
	if newTier > oldTier {
		text := fmt.Sprintf(`🎉 УРА, У НАС ЗВЕЗДА! 🎉

@%s поднял свой ранг и теперь он %s!

🌟 %s → %s 🌟

Поздравляем и гордимся твоим прогрессом!
Продолжай в том же духе! 💪✨`, name, newTier, oldTier, newTier)

		if msgID, err := h.client.SendMessage(chatID, text, 0); err != nil {
			log.Printf("rankup notification: chat %d: %v", chatID, err)
		} else {
			h.cleaner.Schedule(chatID, msgID, RankUpDeleteDelay)
		}
	}

	h.hub.Broadcast(chatID, ws.WSMessage{
		Type: "rank_up",
		Data: map[string]interface{}{
			"display_name": name,
			"old_tier":     oldTier.String(),
			"new_tier":     newTier.String(),
		},
	})
}

func (h *UpdateHandler) dispatchCommand(msg *Message, name, args string) {
	switch name {
	case "start", "help":
		h.cmdHelp(msg)
	case "info":
		h.cmdInfo(msg)
	case "add", "plus", "pa":
		h.cmdAdd(msg)
	case "my", "me", "profile":
		h.cmdProfile(msg)
	case "top":
		h.cmdTop(msg)
	case "update", "u":
		h.cmdUpdate(msg, args)
	case "give":
		h.cmdGive(msg, args)
	case "resync":
		h.cmdResync(msg)
	}
}

func (h *UpdateHandler) cmdHelp(msg *Message) {
	text := `🎯 ДОСТУПНЫЕ КОМАНДЫ:

➕ Добавление баллов:
/add или /plus - добавить балл участнику (ответом на его сообщение)

📊 Информация:
/my - мой профиль (баллы и статус)
/top - ТОП-5 участников чата
/info - информация о системе репутации

⚙️ Админ-команды:
/update <ID> - обновить префикс пользователя

🤖 Автоматически:
Баллы добавляются за слова благодарности и реакции ` + h.policy.ReactionEmoji

	h.replyAndClean(msg, text, CommandDeleteDelay)
}

func (h *UpdateHandler) cmdInfo(msg *Message) {
	text := `🌟 СИСТЕМА РЕПУТАЦИИ

📊 Уровни статусов:
☆☆☆ BASIC [0-14] - Начинающий
★★☆ PRO [15-29] - Профессионал
★★★ ELITE [30+] - Элита

🎯 Как получать баллы:
1. Ответьте /add на полезное сообщение
2. Поблагодарите участника словами благодарности
3. Поставьте реакцию ` + h.policy.ReactionEmoji + ` на сообщение

📈 Ваш статус отображается в префиксе над вашими сообщениями!`

	h.replyAndClean(msg, text, CommandDeleteDelay)
}

func (h *UpdateHandler) cmdAdd(msg *Message) {
	if msg.ReplyToMessage == nil || msg.ReplyToMessage.From == nil {
		h.replyAndClean(msg, "↩️ Ответьте этой командой на сообщение участника, чтобы добавить ему балл.", HintDeleteDelay)
		return
	}

	target := msg.ReplyToMessage.From
	if target.IsBot {
		h.replyAndClean(msg, "🤖 Ботам баллы не начисляются.", HintDeleteDelay)
		return
	}

	res, err := h.events.ApplyEvent(services.Event{
		ChatID:     msg.Chat.ID,
		ActorID:    msg.From.ID,
		TargetID:   target.ID,
		TargetName: displayName(target),
		Delta:      1,
		Source:     services.SourceCommand,
	})
	if err != nil {
		h.replyAndClean(msg, "❌ Не удалось начислить балл: "+err.Error(), CommandDeleteDelay)
		return
	}

	label := ""
	if res.IsOwner {
		label = h.policy.OwnerLabel
	}
	text := fmt.Sprintf("✅ %s\n└─ @%s", rank.Title(res.NewPoints, label), displayName(target))
	if res.SyncErr != nil {
		text += "\n⚠️ Баллы начислены, но префикс обновить не удалось."
	}
	h.replyAndClean(msg, text, CommandDeleteDelay)

	h.afterMutation(msg.Chat.ID, target.ID, displayName(target), res)
}

func (h *UpdateHandler) cmdProfile(msg *Message) {
	entry, err := h.ledger.Get(msg.Chat.ID, msg.From.ID)
	if err != nil {
		log.Printf("profile: %v", err)
		h.replyAndClean(msg, "❌ Не удалось загрузить профиль.", HintDeleteDelay)
		return
	}

	points := 0
	if entry != nil {
		points = entry.Points
	}

	isOwner := h.reconciler.IsOwner(msg.Chat.ID, msg.From.ID)
	label := ""
	if isOwner {
		label = h.policy.OwnerLabel
	}

	text := "👤 ПРОФИЛЬ УЧАСТНИКА\n\n"
	text += fmt.Sprintf("🆔 ID: %d\n", msg.From.ID)
	text += fmt.Sprintf("📛 Имя: @%s\n", displayName(msg.From))
	text += fmt.Sprintf("🏆 Баллы: %d\n\n", points)
	text += fmt.Sprintf("⭐ Текущий статус:\n%s\n\n", rank.Title(points, label))

	if next, remaining, ok := rank.Next(points); ok && !isOwner {
		progress := rank.Progress(points)
		bar := strings.Repeat("█", progress/10) + strings.Repeat("░", 10-progress/10)
		text += fmt.Sprintf("🎯 До %s: %d баллов\n", next, remaining)
		text += fmt.Sprintf("📊 Прогресс: [%s] %d%%\n", bar, progress)
	} else {
		text += "▸ Максимальный статус достигнут\n"
	}

	h.replyAndClean(msg, text, CommandDeleteDelay)
}

func (h *UpdateHandler) cmdTop(msg *Message) {
	entries, err := h.ledger.Top(msg.Chat.ID, 5)
	if err != nil {
		log.Printf("top: %v", err)
		h.replyAndClean(msg, "❌ Не удалось загрузить рейтинг.", HintDeleteDelay)
		return
	}

	if len(entries) == 0 {
		h.replyAndClean(msg, "📭 Рейтинг пуст\nПока никто не получил баллов.", 10*time.Second)
		return
	}

	medals := map[int]string{1: "🥇 ", 2: "🥈 ", 3: "🥉 "}
	text := "🏆 ТОП-5 УЧАСТНИКОВ\n\n"
	for i, e := range entries {
		pos := i + 1
		text += fmt.Sprintf("%s%d. @%s\n", medals[pos], pos, e.DisplayName)
		text += fmt.Sprintf("   └─ %s\n\n", rank.Title(e.Points, ""))
	}

	total, _ := h.ledger.Count(msg.Chat.ID)
	text += fmt.Sprintf("📊 Статистика: %d участников в системе", total)

	h.replyAndClean(msg, text, CommandDeleteDelay)
}

func (h *UpdateHandler) cmdUpdate(msg *Message, args string) {
	if args == "" {
		h.replyAndClean(msg, "ℹ️ Использование:\n/update <ID_пользователя>", CommandDeleteDelay)
		return
	}

	targetID, err := strconv.ParseInt(strings.Fields(args)[0], 10, 64)
	if err != nil {
		h.replyAndClean(msg, "❌ Неверный ID пользователя", CommandDeleteDelay)
		return
	}

	entry, err := h.ledger.Get(msg.Chat.ID, targetID)
	if err != nil {
		log.Printf("update: %v", err)
		h.replyAndClean(msg, "❌ Не удалось прочитать данные пользователя.", CommandDeleteDelay)
		return
	}
	if entry == nil {
		h.replyAndClean(msg, "❌ Пользователь не найден в системе", CommandDeleteDelay)
		return
	}

	sync := h.reconciler.Sync(msg.Chat.ID, targetID, entry.Points)
	if !sync.Synced {
		h.replyAndClean(msg, "❌ Префикс обновить не удалось.", CommandDeleteDelay)
		return
	}

	label := ""
	if sync.IsOwner {
		label = h.policy.OwnerLabel
	}
	text := fmt.Sprintf("✅ Префикс обновлён\n\n👤 Пользователь: @%s\n🆔 ID: %d\n⭐ Новый статус: %s",
		entry.DisplayName, targetID, rank.Title(entry.Points, label))
	h.replyAndClean(msg, text, CommandDeleteDelay)
}

func (h *UpdateHandler) cmdGive(msg *Message, args string) {
	if !h.isOperator(msg.From.ID) {
		h.replyAndClean(msg, "⛔ Команда доступна только оператору.", HintDeleteDelay)
		return
	}

	fields := strings.Fields(args)
	if len(fields) < 2 {
		h.replyAndClean(msg, "ℹ️ Использование:\n/give <ID> <±N> [причина]", CommandDeleteDelay)
		return
	}

	targetID, err1 := strconv.ParseInt(fields[0], 10, 64)
	delta, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil || delta == 0 {
		h.replyAndClean(msg, "❌ Неверные аргументы. Пример: /give 12345 -3 спам", CommandDeleteDelay)
		return
	}
	reason := strings.Join(fields[2:], " ")

	res, err := h.events.ApplyEvent(services.Event{
		ChatID:   msg.Chat.ID,
		ActorID:  msg.From.ID,
		TargetID: targetID,
		Delta:    delta,
		Reason:   reason,
		Source:   services.SourceOperator,
	})
	if err != nil {
		if errors.Is(err, services.ErrDeltaTooLarge) {
			h.replyAndClean(msg, fmt.Sprintf("❌ Лимит на одну операцию: ±%d баллов.", h.events.MaxDelta()), CommandDeleteDelay)
			return
		}
		h.replyAndClean(msg, "❌ Операция не выполнена: "+err.Error(), CommandDeleteDelay)
		return
	}

	text := fmt.Sprintf("✅ Баллы изменены: %d → %d", res.OldPoints, res.NewPoints)
	if reason != "" {
		text += "\n📝 Причина: " + reason
	}
	if res.SyncErr != nil {
		text += "\n⚠️ Баллы изменены, но префикс обновить не удалось."
	}
	h.replyAndClean(msg, text, CommandDeleteDelay)

	name := fields[0]
	if entry, err := h.ledger.Get(msg.Chat.ID, targetID); err == nil && entry != nil && entry.DisplayName != "" {
		name = entry.DisplayName
	}
	h.afterMutation(msg.Chat.ID, targetID, name, res)
}

func (h *UpdateHandler) cmdResync(msg *Message) {
	if !h.isOperator(msg.From.ID) {
		h.replyAndClean(msg, "⛔ Команда доступна только оператору.", HintDeleteDelay)
		return
	}

	entries, err := h.ledger.All(msg.Chat.ID)
	if err != nil {
		log.Printf("resync: %v", err)
		h.replyAndClean(msg, "❌ Не удалось прочитать реестр чата.", CommandDeleteDelay)
		return
	}

	h.replyAndClean(msg, fmt.Sprintf("⏳ Запущена синхронизация префиксов (%d участников)…", len(entries)), CommandDeleteDelay)

	chatID := msg.Chat.ID
	go func() {
		okCount, failCount := 0, 0
		for _, e := range entries {
			if sync := h.reconciler.Sync(chatID, e.UserID, e.Points); sync.Synced {
				okCount++
			} else {
				failCount++
			}
		}

		text := fmt.Sprintf("✅ Синхронизация завершена: %d обновлено, %d с ошибками.", okCount, failCount)
		if msgID, err := h.client.SendMessage(chatID, text, 0); err == nil {
			h.cleaner.Schedule(chatID, msgID, CommandDeleteDelay)
		}
	}()
}

func (h *UpdateHandler) isOperator(userID int64) bool {
	return h.operatorID != 0 && userID == h.operatorID
}

// replyAndClean replies to a command and schedules both the command and the
// reply for deletion.
func (h *UpdateHandler) replyAndClean(msg *Message, text string, after time.Duration) {
	msgID, err := h.client.SendMessage(msg.Chat.ID, text, msg.MessageID)
	if err != nil {
		log.Printf("send reply: chat %d: %v", msg.Chat.ID, err)
		return
	}
	h.cleaner.SchedulePair(msg.Chat.ID, msg.MessageID, msgID, after)
}

// sendEphemeral replies without scheduling the original message away.
func (h *UpdateHandler) sendEphemeral(chatID, replyTo int64, text string, after time.Duration) {
	msgID, err := h.client.SendMessage(chatID, text, replyTo)
	if err != nil {
		log.Printf("send ephemeral: chat %d: %v", chatID, err)
		return
	}
	h.cleaner.Schedule(chatID, msgID, after)
}

func commandName(msg *Message) (name, args string, ok bool) {
	for _, e := range msg.Entities {
		if e.Type == "bot_command" && e.Offset == 0 && e.Length <= len(msg.Text) {
			cmd := msg.Text[:e.Length]
			rest := strings.TrimSpace(msg.Text[e.Length:])
			cmd = strings.TrimPrefix(cmd, "/")
			cmd = strings.Split(cmd, "@")[0]
			return strings.ToLower(cmd), rest, true
		}
	}
	return "", "", false
}

func displayName(u *User) string {
	if u.Username != "" {
		return u.Username
	}
	return fmt.Sprintf("user_%d", u.ID)
}
