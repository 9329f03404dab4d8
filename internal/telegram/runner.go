package telegram

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Runner owns the bot's update feed. With a webhook base URL it registers
// a webhook and serves updates through HandleWebhook; without one it falls
// back to long polling getUpdates.
type Runner struct {
	client  *Client
	handler *UpdateHandler
	cleaner *Cleaner

	webhookBaseURL string
	secretToken    string
	secretPath     string

	stopCh chan struct{}
}

func NewRunner(client *Client, handler *UpdateHandler, cleaner *Cleaner, token, webhookBaseURL, secretToken string) *Runner {
	return &Runner{
		client:         client,
		handler:        handler,
		cleaner:        cleaner,
		webhookBaseURL: webhookBaseURL,
		secretToken:    secretToken,
		secretPath:     tokenSecret(token),
		stopCh:         make(chan struct{}),
	}
}

// tokenSecret derives the unguessable webhook path segment from the bot
// token, so the endpoint cannot be probed.
func tokenSecret(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h[:16])
}

// SecretPath is the path segment the webhook route must be mounted on.
func (r *Runner) SecretPath() string {
	return r.secretPath
}

func (r *Runner) Start() {
	if r.webhookBaseURL != "" {
		webhookURL := fmt.Sprintf("%s/webhook/bot/%s", r.webhookBaseURL, r.secretPath)
		if err := r.client.SetWebhook(webhookURL, r.secretToken); err != nil {
			log.Printf("[runner] failed to set webhook: %v", err)
			return
		}
		log.Printf("[runner] webhook registered: %s", webhookURL)
		return
	}

	// No public URL: long polling, the way the bot runs on a workstation.
	if err := r.client.DeleteWebhook(); err != nil {
		log.Printf("[runner] delete webhook: %v", err)
	}
	go r.pollLoop()
	log.Println("[runner] long polling started")
}

func (r *Runner) Stop() {
	close(r.stopCh)
	r.cleaner.Stop()
	if r.webhookBaseURL != "" {
		r.client.DeleteWebhook()
	}
	log.Println("[runner] stopped")
}

func (r *Runner) pollLoop() {
	var offset int64
	for {
		select {
		case <-r.stopCh:
			return
		default:
		}

		updates, err := r.client.GetUpdates(offset, 30)
		if err != nil {
			log.Printf("[runner] getUpdates: %v", err)
			time.Sleep(3 * time.Second)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			go r.handler.Handle(upd)
		}
	}
}

// HandleWebhook is the gin endpoint Telegram posts updates to.
func (r *Runner) HandleWebhook(c *gin.Context) {
	if c.Param("secret") != r.secretPath {
		c.Status(http.StatusNotFound)
		return
	}

	if r.secretToken != "" {
		headerSecret := c.GetHeader("X-Telegram-Bot-Api-Secret-Token")
		if headerSecret != r.secretToken {
			c.Status(http.StatusUnauthorized)
			return
		}
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	var upd Update
	if err := json.Unmarshal(body, &upd); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	go r.handler.Handle(upd)

	c.Status(http.StatusOK)
}
