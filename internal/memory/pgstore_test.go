package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-run/pilot/api/schemas"
	"github.com/kestrel-run/pilot/internal/memory"
)

type fakePool struct {
	pingErr error
	execErr error

	execCalls []execCall
}

type execCall struct {
	sql  string
	args []any
}

func (f *fakePool) Ping(ctx context.Context) error {
	return f.pingErr
}

func (f *fakePool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execCalls = append(f.execCalls, execCall{sql: sql, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakePool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented in this fake")
}

func TestNewPGStoreFailsWhenPingFails(t *testing.T) {
	t.Parallel()
	pool := &fakePool{pingErr: errors.New("no route to host")}
	_, err := memory.NewPGStore(context.Background(), pool)
	require.Error(t, err)
}

func TestNewPGStoreSucceedsWhenPingSucceeds(t *testing.T) {
	t.Parallel()
	pool := &fakePool{}
	store, err := memory.NewPGStore(context.Background(), pool)
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestPGStoreAppendMarshalsActionAndOutcome(t *testing.T) {
	t.Parallel()
	pool := &fakePool{}
	store, err := memory.NewPGStore(context.Background(), pool)
	require.NoError(t, err)

	entry := memory.Entry{
		Step:    1,
		Action:  schemas.Action{Type: schemas.ActionDone, Reason: "finished"},
		Outcome: schemas.Outcome{StateChanged: true},
		Summary: "done",
	}
	require.NoError(t, store.Append(context.Background(), "session-1", entry))
	require.Len(t, pool.execCalls, 1)
	assert.Equal(t, "session-1", pool.execCalls[0].args[0])
}

func TestPGStoreAppendPropagatesExecError(t *testing.T) {
	t.Parallel()
	pool := &fakePool{execErr: errors.New("write failed")}
	store, err := memory.NewPGStore(context.Background(), pool)
	require.NoError(t, err)

	err = store.Append(context.Background(), "session-1", memory.Entry{Step: 1})
	assert.Error(t, err)
}
