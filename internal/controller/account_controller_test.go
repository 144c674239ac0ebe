package controller_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/coldmail-backend/internal/cache"
	"github.com/unclebandit/coldmail-backend/internal/controller"
	"github.com/unclebandit/coldmail-backend/internal/mailer"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/repository"
	"github.com/unclebandit/coldmail-backend/internal/service"
)

type MockVerifier struct {
	err error
}

func (m *MockVerifier) Verify(ctx context.Context, account model.Account) error {
	return m.err
}

type MockSender struct {
	last    mailer.Message
	account model.Account
}

func (m *MockSender) Send(ctx context.Context, account model.Account, msg mailer.Message) (string, error) {
	m.last = msg
	m.account = account
	return "<1@example.com>", nil
}

var stored = model.Account{Server: "smtp.example.com", Port: "587", Username: "sender@example.com", Password: "secret"}

func newAccountController(t *testing.T, verifyErr error) (*controller.AccountController, *repository.AccountRepository) {
	t.Helper()
	repo := repository.NewAccountRepository(t.TempDir())
	require.NoError(t, repo.Create(stored))
	svc := &service.AccountService{AccountRepo: repo, Verifier: &MockVerifier{err: verifyErr}}
	return &controller.AccountController{AccountService: svc}, repo
}

func TestAccountHandlers(t *testing.T) {
	ctrl, repo := newAccountController(t, nil)

	w := httptest.NewRecorder()
	ctrl.ListAccounts(w, httptest.NewRequest("GET", "/accounts", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
	assert.Contains(t, w.Body.String(), `"smtp_username":"sender@example.com"`)

	newAccount := `{"smtp_server":"smtp.other.com","smtp_port":"465","smtp_username":"two@example.com","smtp_password":"pw"}`
	w = httptest.NewRecorder()
	ctrl.CreateAccount(w, httptest.NewRequest("POST", "/accounts", strings.NewReader(newAccount)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = httptest.NewRecorder()
	ctrl.CreateAccount(w, httptest.NewRequest("POST", "/accounts", strings.NewReader(newAccount)))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	ctrl.CreateAccount(w, httptest.NewRequest("POST", "/accounts", strings.NewReader(`{"smtp_server":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	ctrl.DeleteAccount(w, httptest.NewRequest("DELETE", "/accounts", strings.NewReader(`{"smtp_username":"two@example.com"}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	ctrl.DeleteAccount(w, httptest.NewRequest("DELETE", "/accounts", strings.NewReader(`{"smtp_username":"two@example.com"}`)))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	ctrl.DeleteAccount(w, httptest.NewRequest("DELETE", "/accounts", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	accounts, err := repo.ListAll()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestTestAccountHandlers(t *testing.T) {
	ok, _ := newAccountController(t, nil)
	w := httptest.NewRecorder()
	ok.TestExistingAccount(w, httptest.NewRequest("POST", "/accounts/test-existing", strings.NewReader(`{"smtp_username":"sender@example.com"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = httptest.NewRecorder()
	ok.TestExistingAccount(w, httptest.NewRequest("POST", "/accounts/test-existing", strings.NewReader(`{"smtp_username":"ghost@example.com"}`)))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// a rejected login is still a 200
	bad, _ := newAccountController(t, errors.New("535 authentication failed"))
	w = httptest.NewRecorder()
	body := `{"smtp_server":"smtp.example.com","smtp_port":"587","smtp_username":"x@example.com","smtp_password":"nope"}`
	bad.TestAccount(w, httptest.NewRequest("POST", "/accounts/test", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, w.Code)
	var res service.VerifyResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "535")

	w = httptest.NewRecorder()
	bad.TestAccount(w, httptest.NewRequest("POST", "/accounts/test", strings.NewReader(`{"smtp_server":"smtp.example.com"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDirectoryHandlers(t *testing.T) {
	dir := t.TempDir()
	ctrl := &controller.DirectoryController{DirectoryService: &service.DirectoryService{
		ContactRepo: repository.NewContactRepository(dir),
		LinkRepo:    repository.NewLinkRepository(dir),
	}}

	post := func(handler http.HandlerFunc, body string) int {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("POST", "/", strings.NewReader(body)))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, post(ctrl.EditContacts, `{"action":"add","brand":{"name":"Acme","email":"hi@acme.com"}}`))
	assert.Equal(t, http.StatusOK, post(ctrl.EditContacts, `{"action":"add","brand":{"name":"Globex","email":"hi@globex.com"}}`))
	assert.Equal(t, http.StatusOK, post(ctrl.EditContacts, `{"action":"update","index":1,"brand":{"name":"Globex Corp","email":"hi@globex.com"}}`))
	assert.Equal(t, http.StatusOK, post(ctrl.EditContacts, `{"action":"delete","index":0}`))
	assert.Equal(t, http.StatusBadRequest, post(ctrl.EditContacts, `{"action":"delete","index":7}`))
	assert.Equal(t, http.StatusBadRequest, post(ctrl.EditContacts, `{"action":"rename","index":0}`))

	w := httptest.NewRecorder()
	ctrl.ListContacts(w, httptest.NewRequest("GET", "/contacts", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"name":"Globex Corp","email":"hi@globex.com"}]`, w.Body.String())

	assert.Equal(t, http.StatusOK, post(ctrl.EditLinks, `{"action":"add","link":{"website name":"Blog","url":"https://acme.com/blog"}}`))
	w = httptest.NewRecorder()
	ctrl.ListLinks(w, httptest.NewRequest("GET", "/links", nil))
	assert.JSONEq(t, `[{"website name":"Blog","url":"https://acme.com/blog"}]`, w.Body.String())
}

func TestSendEmailAndLogsHandlers(t *testing.T) {
	dir := t.TempDir()
	accounts := repository.NewAccountRepository(dir)
	require.NoError(t, accounts.Create(stored))
	logs := repository.NewCSVEmailLogRepository(dir)
	sender := &MockSender{}
	ctrl := &controller.MailController{
		SendService: &service.SendService{
			AccountRepo: accounts,
			LogRepo:     logs,
			Sender:      sender,
			Fallback:    model.Account{Server: "smtp.env.com", Port: "587", Username: "env@example.com", Password: "pw"},
		},
		LogRepo: logs,
	}

	body := map[string]any{
		"to":          "lead@client.com",
		"subject":     "Proposal",
		"text":        "See attached",
		"fromAccount": map[string]string{"smtp_username": "sender@example.com"},
		"attachments": []map[string]string{{
			"filename":    "deck.pdf",
			"content":     base64.StdEncoding.EncodeToString([]byte("%PDF")),
			"contentType": "application/pdf",
		}},
	}
	w := httptest.NewRecorder()
	ctrl.SendEmail(w, httptest.NewRequest("POST", "/send-email", jsonBody(t, body)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"messageId":"<1@example.com>"}`, w.Body.String())
	assert.Equal(t, "sender@example.com", sender.account.Username)
	require.Len(t, sender.last.Attachments, 1)
	assert.Equal(t, []byte("%PDF"), sender.last.Attachments[0].Content)

	w = httptest.NewRecorder()
	ctrl.SendEmail(w, httptest.NewRequest("POST", "/send-email", strings.NewReader(`{"to":"a@b.com","subject":"s"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	ctrl.ListLogs(w, httptest.NewRequest("GET", "/logs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var entries []model.EmailLog
	require.NoError(t, json.NewDecoder(w.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "See attached", entries[0].Content)
	assert.Equal(t, []string{"deck.pdf"}, entries[0].Files)
	assert.Equal(t, "sender@example.com", entries[0].From)
}

func TestLookupMessageHandler(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	dir := t.TempDir()
	logs := repository.NewCSVEmailLogRepository(dir)
	logged := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, logs.Append(context.Background(), model.EmailLog{
		ID: "<old@example.com>", To: "a@x.com", From: "me@example.com", Subject: "s", Content: "c",
		Status: model.StatusSent, SentAt: logged,
	}))

	sentCache := cache.NewRedisSentCache(client)
	cached := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, sentCache.StoreSentMessage(context.Background(), "<new@example.com>", cached))

	ctrl := &controller.MailController{LogRepo: logs, SentCache: sentCache}

	lookup := func(id string) (int, map[string]any) {
		w := httptest.NewRecorder()
		ctrl.LookupMessage(w, httptest.NewRequest("GET", "/logs/lookup?message_id="+url.QueryEscape(id), nil))
		var out map[string]any
		_ = json.NewDecoder(w.Body).Decode(&out)
		return w.Code, out
	}

	code, out := lookup("<new@example.com>")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cache", out["source"])
	assert.Equal(t, cached.Format(time.RFC3339), out["sentAt"])

	// not cached (expired or sent before Redis was configured)
	code, out = lookup("<old@example.com>")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "log", out["source"])

	code, _ = lookup("<ghost@example.com>")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = lookup("")
	assert.Equal(t, http.StatusBadRequest, code)

	// without a cache the log alone answers
	ctrl.SentCache = nil
	code, _ = lookup("<new@example.com>")
	assert.Equal(t, http.StatusNotFound, code)
	code, out = lookup("<old@example.com>")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "log", out["source"])
}
