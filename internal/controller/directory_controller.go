package controller

import (
	"net/http"

	"github.com/unclebandit/coldmail-backend/internal/service"
)

// DirectoryController serves the contact (brand) and link lists.
type DirectoryController struct {
	DirectoryService *service.DirectoryService
}

func (c *DirectoryController) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := c.DirectoryService.Contacts()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (c *DirectoryController) EditContacts(w http.ResponseWriter, r *http.Request) {
	var body service.ContactEdit
	if !decodeBody(w, r, &body) {
		return
	}
	if err := c.DirectoryService.EditContact(body); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (c *DirectoryController) ListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := c.DirectoryService.Links()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (c *DirectoryController) EditLinks(w http.ResponseWriter, r *http.Request) {
	var body service.LinkEdit
	if !decodeBody(w, r, &body) {
		return
	}
	if err := c.DirectoryService.EditLink(body); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
