// internal/controller/scheduled_email_controller.go
package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/coldmail-backend/internal/service"
)

type ScheduledEmailController struct {
	SchedulingService *service.SchedulingService
}

func (c *ScheduledEmailController) CreateScheduledEmail(w http.ResponseWriter, r *http.Request) {
	var body service.ScheduleRequest
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := c.SchedulingService.Create(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (c *ScheduledEmailController) ListScheduledEmails(w http.ResponseWriter, r *http.Request) {
	records, err := c.SchedulingService.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (c *ScheduledEmailController) SearchScheduledEmails(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	records, pagination, err := c.SchedulingService.ListPage(r.Context(), page, pageSize, status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       records,
		"pagination": pagination, // total_count, total_pages, page, page_size
	})
}

// DeleteScheduledEmail takes the id from the path, or from a JSON body {"id": ...}.
func (c *ScheduledEmailController) DeleteScheduledEmail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		var body struct {
			ID string `json:"id"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		id = body.ID
	}

	if err := c.SchedulingService.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
