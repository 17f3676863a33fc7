package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourlocalmaccas/School-Website/internal/models"
	appErrors "github.com/yourlocalmaccas/School-Website/pkg/errors"
	"github.com/yourlocalmaccas/School-Website/pkg/response"
)

type subscriptionServer interface {
	Serve(w http.ResponseWriter, r *http.Request, topic string) error
}

type activeTermReader interface {
	GetActive(ctx context.Context) (*models.Term, error)
}

// RealtimeHandler upgrades clients onto the live availability feed.
type RealtimeHandler struct {
	hub   subscriptionServer
	terms activeTermReader
}

// NewRealtimeHandler constructs the handler.
func NewRealtimeHandler(hub subscriptionServer, terms activeTermReader) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, terms: terms}
}

// Sports godoc
// @Summary Live sport availability
// @Description Websocket feed of sports.availability messages for a term, defaulting to the active term.
// @Tags Sports
// @Param term_id query string false "Term ID"
// @Success 101
// @Router /ws/sports [get]
func (h *RealtimeHandler) Sports(c *gin.Context) {
	termID := c.Query("term_id")
	if termID == "" {
		term, err := h.terms.GetActive(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		termID = term.ID
	}
	if err := h.hub.Serve(c.Writer, c.Request, termID); err != nil {
		if !c.Writer.Written() {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "websocket upgrade failed"))
		}
		return
	}
}
