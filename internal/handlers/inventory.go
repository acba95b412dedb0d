package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"bot-inventory/internal/ledger"
	"bot-inventory/internal/nlu"
)

// number accepts 5, 5.5 or "5.5" (thousand separators allowed), matching
// what form-driven clients send.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("%q is not a number", s)
		}
		*n = number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%s is not a number", data)
	}
	*n = number(v)
	return nil
}

type mutationRequest struct {
	Name     string  `json:"name"`
	Product  string  `json:"product"`
	Quantity number  `json:"quantity"`
	Price    *number `json:"price"`
}

func (r mutationRequest) mutation(action nlu.Action) ledger.Mutation {
	name := r.Product
	if strings.TrimSpace(name) == "" {
		name = r.Name
	}
	mut := ledger.Mutation{Action: action, Product: name, Quantity: float64(r.Quantity)}
	if r.Price != nil {
		p := float64(*r.Price)
		mut.Price = &p
	}
	return mut
}

type mutationResponse struct {
	Message string `json:"message"`
	*ledger.Result
}

func (a *API) listProducts(c *gin.Context) {
	products, err := a.ledger.ListProducts(c.Request.Context(), currentUser(c), c.Query("q"))
	if err != nil {
		a.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (a *API) addProduct(c *gin.Context) {
	a.applyMutation(c, nlu.ActionAdd)
}

func (a *API) sellProduct(c *gin.Context) {
	a.applyMutation(c, nlu.ActionSell)
}

func (a *API) applyMutation(c *gin.Context, action nlu.Action) {
	var req mutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, kindInvalidInput, err.Error())
		return
	}
	res, err := a.ledger.Apply(c.Request.Context(), currentUser(c), req.mutation(action))
	if err != nil {
		a.writeErr(c, err)
		return
	}
	c.JSON(mutationStatus(action), mutationResponse{Message: ledger.Summary(res), Result: res})
}

// mutationStatus is 201 for an add, which records new stock, and 200 for a sell.
func mutationStatus(action nlu.Action) int {
	if action == nlu.ActionAdd {
		return http.StatusCreated
	}
	return http.StatusOK
}

func (a *API) listTransactions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			abortError(c, http.StatusBadRequest, kindInvalidInput, "limit must be a non-negative integer")
			return
		}
		limit = v
	}
	txs, err := a.ledger.ListTransactions(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		a.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

func (a *API) profile(c *gin.Context) {
	prof, err := a.ledger.GetProfile(c.Request.Context(), currentUser(c))
	if err != nil {
		a.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, prof)
}
