package service

import (
	"sort"
	"time"

	"github.com/unclebandit/coldmail-backend/internal/model"
)

// SelectDue returns the pending records whose scheduled date is not after now,
// oldest first. Records with equal dates keep their store order.
func SelectDue(records []model.ScheduledEmail, now time.Time) []model.ScheduledEmail {
	due := make([]model.ScheduledEmail, 0, len(records))
	for _, r := range records {
		if r.IsPending() && !r.ScheduledDate.After(now) {
			due = append(due, r)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].ScheduledDate.Before(due[j].ScheduledDate)
	})
	return due
}

func countPending(records []model.ScheduledEmail) int {
	n := 0
	for _, r := range records {
		if r.IsPending() {
			n++
		}
	}
	return n
}
