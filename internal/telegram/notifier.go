package telegram

import (
	"fmt"
	"log"
)

// OperatorNotifier DMs title-sync failures to the operator's private chat,
// so rights problems in a group surface without reading server logs.
// A zero chat id disables it.
type OperatorNotifier struct {
	client *Client
	chatID int64
}

func NewOperatorNotifier(client *Client, chatID int64) *OperatorNotifier {
	return &OperatorNotifier{client: client, chatID: chatID}
}

func (n *OperatorNotifier) ReportSyncFailure(chatID, userID int64, reason error) {
	if n.chatID == 0 {
		return
	}

	text := fmt.Sprintf("⚠️ Не удалось обновить префикс\n\n💬 Чат: %d\n👤 Пользователь: %d\n❌ %v",
		chatID, userID, reason)
	if _, err := n.client.SendMessage(n.chatID, text, 0); err != nil {
		log.Printf("operator report: chat %d: %v", n.chatID, err)
	}
}
