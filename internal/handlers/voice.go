package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bot-inventory/internal/ledger"
	"bot-inventory/internal/nlu"
)

type voiceRequest struct {
	Text string `json:"text"`
}

type clarificationResponse struct {
	Kind    string     `json:"kind"`
	Message string     `json:"message"`
	Intent  nlu.Intent `json:"intent"`
}

type applyResponse struct {
	Intent  nlu.Intent `json:"intent"`
	Message string     `json:"message"`
	*ledger.Result
}

// interpret reads the command text and resolves it. It writes the response
// itself and returns false when the request cannot go further.
func (a *API) interpret(c *gin.Context) (nlu.Intent, bool) {
	var req voiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, kindInvalidInput, err.Error())
		return nlu.Intent{}, false
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		abortError(c, http.StatusBadRequest, kindInvalidInput, "text is required")
		return nlu.Intent{}, false
	}

	out := a.interp.Interpret(c.Request.Context(), currentUser(c), text)
	if !out.Resolved() {
		c.JSON(http.StatusUnprocessableEntity, clarificationResponse{
			Kind:    nlu.KindAmbiguousCommand,
			Message: out.Clarification,
			Intent:  out.Intent,
		})
		return nlu.Intent{}, false
	}
	return out.Intent, true
}

func (a *API) parseVoice(c *gin.Context) {
	intent, ok := a.interpret(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, intent)
}

func (a *API) applyVoice(c *gin.Context) {
	intent, ok := a.interpret(c)
	if !ok {
		return
	}
	res, err := a.ledger.ApplyIntent(c.Request.Context(), currentUser(c), intent)
	if err != nil {
		a.writeErr(c, err)
		return
	}
	c.JSON(mutationStatus(intent.Action), applyResponse{Intent: intent, Message: ledger.Summary(res), Result: res})
}

// voiceMutation applies a confirmed intent; the body carries either product or name.
func (a *API) voiceMutation(action nlu.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		a.applyMutation(c, action)
	}
}
