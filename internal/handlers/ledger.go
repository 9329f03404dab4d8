package handlers

import (
	"net/http"
	"strconv"

	"github.com/t03ya/ratingMKC/internal/rank"
	"github.com/t03ya/ratingMKC/internal/services"

	"github.com/gin-gonic/gin"
)

type LedgerHandler struct {
	ledger *services.LedgerService
	events *services.EventService
	syncer services.TitleSyncer
}

func NewLedgerHandler(ledger *services.LedgerService, events *services.EventService, syncer services.TitleSyncer) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, events: events, syncer: syncer}
}

type LeaderboardEntry struct {
	Position    int    `json:"position"`
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	Points      int    `json:"points"`
	Tier        string `json:"tier"`
}

type LeaderboardResponse struct {
	ChatID      int64              `json:"chat_id"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	TotalUsers  int64              `json:"total_users"`
}

// GetLeaderboard returns the top balances of a chat.
func (h *LedgerHandler) GetLeaderboard(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid chat id"})
		return
	}

	limit := 10
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	entries, err := h.ledger.Top(chatID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := LeaderboardResponse{ChatID: chatID}
	for i, e := range entries {
		resp.Leaderboard = append(resp.Leaderboard, LeaderboardEntry{
			Position:    i + 1,
			UserID:      e.UserID,
			DisplayName: e.DisplayName,
			Points:      e.Points,
			Tier:        rank.TierFor(e.Points).String(),
		})
	}
	resp.TotalUsers, _ = h.ledger.Count(chatID)

	c.JSON(http.StatusOK, resp)
}

type ProfileResponse struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	Points      int    `json:"points"`
	Tier        string `json:"tier"`
	Title       string `json:"title"`
	NextTier    string `json:"next_tier,omitempty"`
	ToNextTier  int    `json:"to_next_tier,omitempty"`
}

// GetProfile returns one user's balance and derived rank in a chat.
func (h *LedgerHandler) GetProfile(c *gin.Context) {
	chatID, err1 := strconv.ParseInt(c.Param("id"), 10, 64)
	userID, err2 := strconv.ParseInt(c.Param("uid"), 10, 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid chat or user id"})
		return
	}

	entry, err := h.ledger.Get(chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user has no entry in this chat"})
		return
	}

	resp := ProfileResponse{
		UserID:      entry.UserID,
		DisplayName: entry.DisplayName,
		Points:      entry.Points,
		Tier:        rank.TierFor(entry.Points).String(),
		Title:       rank.Title(entry.Points, ""),
	}
	if next, remaining, ok := rank.Next(entry.Points); ok {
		resp.NextTier = next.String()
		resp.ToNextTier = remaining
	}

	c.JSON(http.StatusOK, resp)
}

type GrantRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason"`
}

type GrantResponse struct {
	OldPoints   int    `json:"old_points"`
	NewPoints   int    `json:"new_points"`
	OldTier     string `json:"old_tier"`
	NewTier     string `json:"new_tier"`
	TitleSynced bool   `json:"title_synced"`
}

// Grant credits or debits an arbitrary amount, operator-authenticated.
func (h *LedgerHandler) Grant(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid chat id"})
		return
	}

	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	res, err := h.events.ApplyEvent(services.Event{
		ChatID:   chatID,
		TargetID: req.UserID,
		Delta:    req.Delta,
		Reason:   req.Reason,
		Source:   services.SourceOperator,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, GrantResponse{
		OldPoints:   res.OldPoints,
		NewPoints:   res.NewPoints,
		OldTier:     res.OldTier.String(),
		NewTier:     res.NewTier.String(),
		TitleSynced: res.TitleSynced,
	})
}

type ResyncResponse struct {
	Total  int `json:"total"`
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// Resync re-applies the derived title for every known user of a chat.
func (h *LedgerHandler) Resync(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid chat id"})
		return
	}

	entries, err := h.ledger.All(chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := ResyncResponse{Total: len(entries)}
	for _, e := range entries {
		if sync := h.syncer.Sync(chatID, e.UserID, e.Points); sync.Synced {
			resp.Synced++
		} else {
			resp.Failed++
		}
	}

	c.JSON(http.StatusOK, resp)
}
