package app

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/shopcheck/internal/types"
)

type fakeVerifier struct {
	run   types.Run
	calls int
}

func (f *fakeVerifier) Run(context.Context) types.Run {
	f.calls++
	return f.run
}

type fakeRecorder struct {
	runs []types.Run
	err  error
}

func (f *fakeRecorder) SaveRun(r *types.Run) error {
	if f.err != nil {
		return f.err
	}
	r.ID = int64(len(f.runs) + 1)
	f.runs = append(f.runs, *r)
	return nil
}

func TestRunOncePrintsSuccess(t *testing.T) {
	var out bytes.Buffer
	v := &fakeVerifier{run: types.Run{Succeeded: true, Message: types.SuccessMessage}}

	run := New(v, nil, &out).RunOnce(context.Background())

	assert.True(t, run.Succeeded)
	assert.Equal(t, "Verification script ran successfully.\n", out.String())
	assert.Equal(t, 1, v.calls)
}

func TestRunOncePrintsFailure(t *testing.T) {
	var out bytes.Buffer
	v := &fakeVerifier{run: types.Run{Message: types.FailurePrefix + "step 1 (navigate http://localhost:3000/): refused"}}

	New(v, nil, &out).RunOnce(context.Background())

	assert.Equal(t, "Verification failed: step 1 (navigate http://localhost:3000/): refused\n", out.String())
}

func TestRunOnceRecordsHistory(t *testing.T) {
	var out bytes.Buffer
	rec := &fakeRecorder{}
	v := &fakeVerifier{run: types.Run{Succeeded: true, Message: types.SuccessMessage}}
	a := New(v, rec, &out)

	first := a.RunOnce(context.Background())
	second := a.RunOnce(context.Background())

	require.Len(t, rec.runs, 2)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
}

func TestRunOnceHistoryFailureStillPrints(t *testing.T) {
	var out bytes.Buffer
	rec := &fakeRecorder{err: errors.New("disk full")}
	v := &fakeVerifier{run: types.Run{Succeeded: true, Message: types.SuccessMessage}}

	run := New(v, rec, &out).RunOnce(context.Background())

	assert.True(t, run.Succeeded)
	assert.Equal(t, types.SuccessMessage+"\n", out.String())
}

func TestJob(t *testing.T) {
	var out bytes.Buffer

	ok := New(&fakeVerifier{run: types.Run{Succeeded: true, Message: types.SuccessMessage}}, nil, &out)
	assert.NoError(t, ok.Job(context.Background()))

	failing := New(&fakeVerifier{run: types.Run{Message: "Verification failed: boom"}}, nil, &out)
	assert.EqualError(t, failing.Job(context.Background()), "Verification failed: boom")
}
