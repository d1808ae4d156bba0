package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"checklist-tracker/internal/models"
	"checklist-tracker/internal/repository"

	"github.com/stretchr/testify/require"
)

const togglePayload = `{"action":"toggle","date":"2026-01-29_Line1","item_id":"item_5","user":"alice","note":"ok"}`

type recordingApplier struct {
	got []*models.ChecklistCommand
	err error
	// failures is how many leading calls return err; negative means every call.
	failures int
}

func (r *recordingApplier) apply(ctx context.Context, cmd *models.ChecklistCommand) (models.CheckedMap, error) {
	r.got = append(r.got, cmd)
	if r.err != nil && (r.failures < 0 || len(r.got) <= r.failures) {
		return nil, r.err
	}
	return models.CheckedMap{}, nil
}

type recordingWait struct {
	delays []time.Duration
	err    error
}

func (w *recordingWait) wait(ctx context.Context, d time.Duration) error {
	w.delays = append(w.delays, d)
	return w.err
}

func TestHandleMessage_AppliesToggle(t *testing.T) {
	a := &recordingApplier{}
	err := HandleMessage(context.Background(), []byte(togglePayload), a.apply)
	require.NoError(t, err)
	require.Len(t, a.got, 1)
	require.Equal(t, "2026-01-29_Line1", a.got[0].RecordKey)
	require.Equal(t, "item_5", a.got[0].ItemID)
	require.Equal(t, "ok", a.got[0].Note)
}

func TestHandleMessage_PropagatesApplyError(t *testing.T) {
	a := &recordingApplier{err: errors.New("db is down"), failures: -1}
	err := HandleMessage(context.Background(),
		[]byte(`{"action":"attach_photo","date":"2026-01-29","item_id":"item_5","user":"alice","photo":{"id":"p","url":"u"}}`), a.apply)
	require.EqualError(t, err, "db is down")
	require.NotErrorIs(t, err, ErrPoisonMessage)
}

func TestHandleMessage_RejectsBadPayloadsAsPoison(t *testing.T) {
	a := &recordingApplier{}
	require.ErrorIs(t, HandleMessage(context.Background(), []byte(`not json`), a.apply), ErrPoisonMessage)
	require.ErrorIs(t, HandleMessage(context.Background(), []byte(`{"action":"toggle","date":"2026-01-29"}`), a.apply), ErrPoisonMessage)
	require.Empty(t, a.got)
}

func TestHandleMessage_InvalidCommandIsPoison(t *testing.T) {
	a := &recordingApplier{err: fmt.Errorf("%w: missing photo", repository.ErrInvalidCommand), failures: -1}
	err := HandleMessage(context.Background(), []byte(`{"action":"attach_photo","date":"2026-01-29","item_id":"x"}`), a.apply)
	require.ErrorIs(t, err, ErrPoisonMessage)
}

func TestHandleMessage_IgnoresUnknownAction(t *testing.T) {
	a := &recordingApplier{}
	err := HandleMessage(context.Background(), []byte(`{"action":"delete","date":"2026-01-29","item_id":"x"}`), a.apply)
	require.NoError(t, err)
	require.Empty(t, a.got)
}

func TestProcessMessage_RetriesTransientFailureWithBackoff(t *testing.T) {
	a := &recordingApplier{err: repository.ErrUnavailable, failures: 3}
	w := &recordingWait{}

	err := processMessage(context.Background(), []byte(togglePayload), a.apply, w.wait)
	require.NoError(t, err)
	require.Len(t, a.got, 4)
	require.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}, w.delays)
}

func TestProcessMessage_PoisonIsNotRetried(t *testing.T) {
	a := &recordingApplier{}
	w := &recordingWait{}

	err := processMessage(context.Background(), []byte(`{broken`), a.apply, w.wait)
	require.ErrorIs(t, err, ErrPoisonMessage)
	require.Empty(t, a.got)
	require.Empty(t, w.delays)
}

func TestProcessMessage_StopsWhenContextEnds(t *testing.T) {
	a := &recordingApplier{err: repository.ErrUnavailable, failures: -1}
	w := &recordingWait{err: context.Canceled}

	err := processMessage(context.Background(), []byte(togglePayload), a.apply, w.wait)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ErrPoisonMessage)
	require.Len(t, a.got, 1)
}

func TestBackoff_IsCapped(t *testing.T) {
	require.Equal(t, retryBaseDelay, backoff(0))
	require.Equal(t, 2*retryBaseDelay, backoff(1))
	require.Equal(t, retryMaxDelay, backoff(10))
	require.Equal(t, retryMaxDelay, backoff(1000))
}

func TestSleepCtx_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}
