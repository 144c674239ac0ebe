package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/repository"
	"github.com/unclebandit/coldmail-backend/internal/service"
)

func newSchedulingService(t *testing.T) (*service.SchedulingService, *repository.CSVScheduledEmailRepository) {
	t.Helper()
	repo := repository.NewCSVScheduledEmailRepository(t.TempDir())
	svc := service.NewSchedulingService(repo)
	svc.Now = func() time.Time { return time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC) }
	return svc, repo
}

func validRequest() service.ScheduleRequest {
	return service.ScheduleRequest{
		To:            "a@x.com, b@y.com",
		FromAccount:   senderUser,
		Subject:       "Hello",
		HTML:          "<p>Hi {{name}}</p>",
		ScheduledDate: "2025-06-03T09:00:00Z",
	}
}

func TestCreate_OneRecordPerRecipient(t *testing.T) {
	svc, repo := newSchedulingService(t)

	res, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Count)
	require.Len(t, res.IDs, 2)
	assert.NotEqual(t, res.IDs[0], res.IDs[1])

	records, err := repo.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "a@x.com", records[0].To)
	assert.Equal(t, "b@y.com", records[1].To)
	for i, r := range records {
		assert.Equal(t, res.IDs[i], r.ID)
		assert.Equal(t, "Hello", r.Subject)
		assert.Equal(t, "<p>Hi {{name}}</p>", r.HTML)
		assert.Equal(t, model.StatusPending, r.Status)
		assert.True(t, r.ScheduledDate.Equal(time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)))
		assert.Nil(t, r.NextSendAfter)
	}
}

func TestCreate_DropsEmptyRecipients(t *testing.T) {
	svc, _ := newSchedulingService(t)
	req := validRequest()
	req.To = " ,a@x.com,, "

	res, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
}

func TestCreate_AppendsToExisting(t *testing.T) {
	svc, repo := newSchedulingService(t)
	_, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	records, err := repo.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestCreate_Validation(t *testing.T) {
	cases := map[string]struct {
		mutate func(*service.ScheduleRequest)
		field  string
	}{
		"missing to":      {func(r *service.ScheduleRequest) { r.To = "" }, "to"},
		"missing account": {func(r *service.ScheduleRequest) { r.FromAccount = "" }, "from_account"},
		"missing subject": {func(r *service.ScheduleRequest) { r.Subject = "" }, "subject"},
		"missing html":    {func(r *service.ScheduleRequest) { r.HTML = "" }, "html"},
		"missing date":    {func(r *service.ScheduleRequest) { r.ScheduledDate = "" }, "scheduled_date"},
		"bad date":        {func(r *service.ScheduleRequest) { r.ScheduledDate = "next tuesday" }, "scheduled_date"},
		"only separators": {func(r *service.ScheduleRequest) { r.To = " , ," }, "to"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc, repo := newSchedulingService(t)
			req := validRequest()
			tc.mutate(&req)

			_, err := svc.Create(context.Background(), req)
			var ve *appErrors.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.field, ve.Field)

			records, err := repo.ReadAll(context.Background())
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

func TestCreate_AcceptsDatetimeLocal(t *testing.T) {
	svc, repo := newSchedulingService(t)
	req := validRequest()
	req.ScheduledDate = "2025-06-03T09:30"

	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	records, err := repo.ReadAll(context.Background())
	require.NoError(t, err)
	want := time.Date(2025, 6, 3, 9, 30, 0, 0, time.Local)
	assert.True(t, records[0].ScheduledDate.Equal(want))
}

func TestDelete(t *testing.T) {
	svc, repo := newSchedulingService(t)
	ctx := context.Background()
	now := time.Now()

	done := pendingEmail("done", now)
	done.Status = model.StatusSent
	require.NoError(t, repo.WriteAll(ctx, []model.ScheduledEmail{pendingEmail("keep", now), pendingEmail("drop", now), done}))

	require.NoError(t, svc.Delete(ctx, "drop"))
	assert.ErrorIs(t, svc.Delete(ctx, "done"), appErrors.ErrScheduledEmailNotDeletable)

	var nf *appErrors.ScheduledEmailNotFoundError
	assert.True(t, errors.As(svc.Delete(ctx, "drop"), &nf))

	var ve *appErrors.ValidationError
	assert.True(t, errors.As(svc.Delete(ctx, ""), &ve))

	records, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "keep", records[0].ID)
	assert.Equal(t, "done", records[1].ID)
}

func TestStats(t *testing.T) {
	svc, repo := newSchedulingService(t)
	ctx := context.Background()
	now := svc.Now()
	later := now.Add(time.Hour)

	throttled := pendingEmail("t", now)
	throttled.NextSendAfter = &later
	sent := pendingEmail("s", now)
	sent.Status = model.StatusSent
	failed := pendingEmail("f", now)
	failed.Status = model.StatusFailed
	require.NoError(t, repo.WriteAll(ctx, []model.ScheduledEmail{pendingEmail("p", now), throttled, sent, failed}))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, service.ScheduledEmailStats{Total: 4, Pending: 2, Sent: 1, Failed: 1, Throttled: 1}, *stats)
}

func TestListPage(t *testing.T) {
	svc, repo := newSchedulingService(t)
	ctx := context.Background()
	now := time.Now()

	var records []model.ScheduledEmail
	for i := 0; i < 25; i++ {
		r := pendingEmail(string(rune('a'+i)), now)
		if i%5 == 0 {
			r.Status = model.StatusSent
		}
		records = append(records, r)
	}
	require.NoError(t, repo.WriteAll(ctx, records))

	seen := map[string]bool{}
	for page := 1; page <= 2; page++ {
		data, pagination, err := svc.ListPage(ctx, page, 10, model.StatusPending)
		require.NoError(t, err)
		assert.Equal(t, 20, pagination["total_count"])
		assert.Equal(t, 2, pagination["total_pages"])
		assert.Len(t, data, 10)
		for _, r := range data {
			assert.Equal(t, model.StatusPending, r.Status)
			assert.False(t, seen[r.ID], "duplicate %s", r.ID)
			seen[r.ID] = true
		}
	}

	data, pagination, err := svc.ListPage(ctx, 9, 500, "")
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Equal(t, 100, pagination["page_size"])
}
