// internal/controller/account_controller.go
package controller

import (
	"net/http"

	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/service"
)

type AccountController struct {
	AccountService *service.AccountService
}

type accountRef struct {
	Username string `json:"smtp_username"`
}

func (c *AccountController) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := c.AccountService.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (c *AccountController) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var body model.Account
	if !decodeBody(w, r, &body) {
		return
	}
	if err := c.AccountService.Create(body); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (c *AccountController) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	var body accountRef
	if !decodeBody(w, r, &body) {
		return
	}
	if err := c.AccountService.Delete(body.Username); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// TestAccount answers 200 with {ok, error} even when the server rejects the login.
func (c *AccountController) TestAccount(w http.ResponseWriter, r *http.Request) {
	var body model.Account
	if !decodeBody(w, r, &body) {
		return
	}
	result, err := c.AccountService.Test(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (c *AccountController) TestExistingAccount(w http.ResponseWriter, r *http.Request) {
	var body accountRef
	if !decodeBody(w, r, &body) {
		return
	}
	result, err := c.AccountService.TestExisting(r.Context(), body.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
