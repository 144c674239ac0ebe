package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/coldmail-backend/internal/app"
	"github.com/unclebandit/coldmail-backend/internal/config"
	"github.com/unclebandit/coldmail-backend/internal/queue"
	"github.com/unclebandit/coldmail-backend/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:           t.TempDir(),
		StoreDriver:       config.DriverCSV,
		DispatchSchedule:  "@every 1h",
		StaggerMin:        time.Hour,
		StaggerMax:        3 * time.Hour,
		SMTPVerifyTimeout: 8 * time.Second,
		PassLockTTL:       10 * time.Minute,
		SMTP:              config.SMTP{Server: "smtp.env.com", Port: "587", Username: "env@example.com", Password: "pw"},
	}
}

func TestNew_CSVWithoutRedis(t *testing.T) {
	a, err := app.New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Dispatch.Lock)
	assert.Nil(t, a.Dispatch.SentCache)
	assert.IsType(t, &queue.InMemoryQueue{}, a.Queue)
	assert.Nil(t, a.AMQPClosed())
	assert.Equal(t, "env@example.com", a.FallbackAccount().Username)

	d := a.Dispatch.Delay()
	assert.GreaterOrEqual(t, d, time.Hour)
	assert.LessOrEqual(t, d, 3*time.Hour)
}

func TestNew_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()

	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Dispatch.Lock)
	assert.NotNil(t, a.Dispatch.SentCache)
}

func TestNew_RedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis.Addr = "127.0.0.1:1"

	_, err := app.New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRequestPassReachesWorker(t *testing.T) {
	a, err := app.New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	worker := service.NewWorker(a.Dispatch, 1)
	done := make(chan queue.PassRequest, 1)
	worker.OnResult = func(req queue.PassRequest, res *service.PassResult, err error) {
		assert.NoError(t, err)
		done <- req
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.StartWorker(ctx, worker))

	a.RequestPass("startup")

	select {
	case req := <-done:
		assert.Equal(t, "startup", req.Source)
	case <-time.After(2 * time.Second):
		t.Fatal("pass did not run")
	}

	trigger, err := a.NewTrigger("cron")
	require.NoError(t, err)
	assert.Equal(t, "@every 1h", trigger.Schedule())
}
