package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bot-inventory/internal/repo"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string     `json:"token"`
	User  *repo.User `json:"user"`
}

func (a *API) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, kindInvalidInput, err.Error())
		return
	}
	token, user, err := a.auth.Signup(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		a.writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{Token: token, User: user})
}

func (a *API) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, kindInvalidInput, err.Error())
		return
	}
	token, user, err := a.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		a.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Token: token, User: user})
}

func (a *API) logout(c *gin.Context) {
	token, _ := bearerToken(c.GetHeader("Authorization"))
	if err := a.auth.Logout(c.Request.Context(), token); err != nil {
		a.writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
