package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sipkl/internal/clock"
	"sipkl/internal/queue"
)

var jakarta = time.FixedZone("WIB", 7*3600)

func TestNewDailyRejectsBadTime(t *testing.T) {
	_, err := NewDaily("quarter past three", jakarta, nil, queue.NewInMemory(1), zap.NewNop())
	assert.Error(t, err)
}

func TestNextRun(t *testing.T) {
	d, err := NewDaily("15:05", jakarta, nil, queue.NewInMemory(1), zap.NewNop())
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "morning fires same day",
			now:  time.Date(2026, 10, 19, 8, 0, 0, 0, jakarta),
			want: time.Date(2026, 10, 19, 15, 5, 0, 0, jakarta),
		},
		{
			name: "exactly at fire time moves to tomorrow",
			now:  time.Date(2026, 10, 19, 15, 5, 0, 0, jakarta),
			want: time.Date(2026, 10, 20, 15, 5, 0, 0, jakarta),
		},
		{
			name: "evening fires next day",
			now:  time.Date(2026, 10, 19, 21, 0, 0, 0, jakarta),
			want: time.Date(2026, 10, 20, 15, 5, 0, 0, jakarta),
		},
		{
			name: "utc input is converted",
			// 23:00 UTC on the 19th is 06:00 on the 20th in Jakarta.
			now:  time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC),
			want: time.Date(2026, 10, 20, 15, 5, 0, 0, jakarta),
		},
		{
			name: "month rollover",
			now:  time.Date(2026, 10, 31, 16, 0, 0, 0, jakarta),
			want: time.Date(2026, 11, 1, 15, 5, 0, 0, jakarta),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.NextRun(tt.now)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

type cancelingQueue struct {
	published []queue.Message
	cancel    context.CancelFunc
}

func (q *cancelingQueue) Publish(_ context.Context, msg queue.Message) error {
	q.published = append(q.published, msg)
	q.cancel()
	return nil
}

func (q *cancelingQueue) Consume(context.Context) (<-chan queue.Message, error) {
	return nil, nil
}

func TestRunEnqueuesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := &cancelingQueue{cancel: cancel}
	now := clock.Fixed(time.Date(2026, 10, 19, 15, 0, 0, 0, jakarta))
	d, err := NewDaily("15:05", jakarta, now, q, zap.NewNop())
	require.NoError(t, err)

	var waited time.Duration
	d.after = func(wait time.Duration) <-chan time.Time {
		waited = wait
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}

	err = d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5*time.Minute, waited)
	require.Len(t, q.published, 1)
	assert.Equal(t, queue.TypeAutoAlpha, q.published[0].Type)
	assert.Contains(t, string(q.published[0].Body), `"source":"scheduler"`)
}
