package control

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thejas775/Browser-Agent/internal/agent"
	"github.com/Thejas775/Browser-Agent/internal/browser"
	"github.com/Thejas775/Browser-Agent/internal/config"
	"github.com/Thejas775/Browser-Agent/internal/llm"
	"github.com/Thejas775/Browser-Agent/internal/metrics"
)

type fakeAgent struct {
	maxActions int
	maxSteps   int
	run        func(ctx context.Context) (*agent.History, error)
}

func (a *fakeAgent) SetMaxActionsPerStep(n int) { a.maxActions = n }

func (a *fakeAgent) Run(ctx context.Context, maxSteps int) (*agent.History, error) {
	a.maxSteps = maxSteps
	if a.run == nil {
		return &agent.History{ExitReason: agent.ReasonFinished}, nil
	}
	return a.run(ctx)
}

type fakeBuilder struct {
	agent *fakeAgent
	err   error
	built int
	tasks []string
}

func (b *fakeBuilder) NewAgent(task string) (AgentRunner, error) {
	b.tasks = append(b.tasks, task)
	if b.err != nil {
		return nil, b.err
	}
	b.built++
	return b.agent, nil
}

func newTestDriver(b Builder) *Driver {
	return NewDriver(b, NewSession(), nil, nil)
}

func countErrors(logs []string) int {
	n := 0
	for _, l := range logs {
		if strings.HasPrefix(l, "Error: ") {
			n++
		}
	}
	return n
}

func TestStartMissingCredential(t *testing.T) {
	isolateKey(t)
	opened := 0
	f := NewFactory(&config.Config{}, nil, WithOpener(func(context.Context) (browser.Driver, error) {
		opened++
		return nil, errors.New("unreachable")
	}))
	d := newTestDriver(f)

	err := d.Start(context.Background(), RunRequest{Task: "search for cats", MaxSteps: 25, MaxActionsPerStep: 4})
	require.ErrorIs(t, err, config.ErrMissingAPIKey)
	assert.EqualError(t, err, "GEMINI_API_KEY is not set")
	assert.False(t, d.Session().Running())
	assert.Empty(t, d.Session().Logs())
	assert.Zero(t, opened)
}

func TestStartSuccessClearsFlag(t *testing.T) {
	var during bool
	fa := &fakeAgent{}
	d := newTestDriver(&fakeBuilder{agent: fa})
	fa.run = func(context.Context) (*agent.History, error) {
		during = d.Session().Running()
		return &agent.History{ExitReason: agent.ReasonFinished}, nil
	}

	require.NoError(t, d.Start(context.Background(), RunRequest{Task: "search for cats", MaxSteps: 25, MaxActionsPerStep: 4}))
	assert.True(t, during)
	assert.False(t, d.Session().Running())
	assert.Equal(t, []string{"Starting automation task: search for cats"}, d.Session().Logs())
	assert.Equal(t, 25, fa.maxSteps)
	assert.Equal(t, 4, fa.maxActions)
}

func TestStartRunErrorIsLoggedAndSwallowed(t *testing.T) {
	fa := &fakeAgent{run: func(context.Context) (*agent.History, error) {
		return nil, errors.New("no response")
	}}
	d := newTestDriver(&fakeBuilder{agent: fa})

	require.NoError(t, d.Start(context.Background(), RunRequest{Task: "search for cats", MaxSteps: 25, MaxActionsPerStep: 4}))

	logs := d.Session().Logs()
	assert.False(t, d.Session().Running())
	assert.Equal(t, 1, countErrors(logs))
	assert.Equal(t, "Error: no response", logs[len(logs)-1])
}

func TestStartEmptyTaskNeverRuns(t *testing.T) {
	b := &fakeBuilder{agent: &fakeAgent{}}
	d := newTestDriver(b)

	for _, task := range []string{"", "   "} {
		err := d.Start(context.Background(), RunRequest{Task: task, MaxSteps: 25, MaxActionsPerStep: 4})
		assert.ErrorIs(t, err, ErrEmptyTask)
	}
	assert.Empty(t, b.tasks)
	assert.False(t, d.Session().Running())
}

func TestStartClampsBounds(t *testing.T) {
	cases := []struct {
		steps, actions         int
		wantSteps, wantActions int
	}{
		{0, 0, 1, 1},
		{-5, -1, 1, 1},
		{101, 11, 100, 10},
		{500, 50, 100, 10},
		{25, 4, 25, 4},
		{1, 10, 1, 10},
	}
	for _, tc := range cases {
		fa := &fakeAgent{}
		d := newTestDriver(&fakeBuilder{agent: fa})
		require.NoError(t, d.Start(context.Background(), RunRequest{Task: "t", MaxSteps: tc.steps, MaxActionsPerStep: tc.actions}))
		assert.Equal(t, tc.wantSteps, fa.maxSteps)
		assert.Equal(t, tc.wantActions, fa.maxActions)
	}
}

func TestStopDoesNotInterruptRun(t *testing.T) {
	fa := &fakeAgent{}
	d := newTestDriver(&fakeBuilder{agent: fa})
	var ctxErr error
	fa.run = func(ctx context.Context) (*agent.History, error) {
		assert.True(t, d.Session().Stop())
		assert.False(t, d.Session().Running())
		ctxErr = ctx.Err()
		return &agent.History{}, nil
	}

	require.NoError(t, d.Start(context.Background(), RunRequest{Task: "t", MaxSteps: 1, MaxActionsPerStep: 1}))
	assert.NoError(t, ctxErr)
	assert.Equal(t, []string{"Starting automation task: t", "Automation stopped by user"}, d.Session().Logs())
	assert.False(t, d.Session().Running())
}

func TestStartRejectsSecondRunWhileInFlight(t *testing.T) {
	fa := &fakeAgent{}
	d := newTestDriver(&fakeBuilder{agent: fa})
	var nested error
	fa.run = func(ctx context.Context) (*agent.History, error) {
		fa.run = nil
		nested = d.Start(ctx, RunRequest{Task: "again", MaxSteps: 1, MaxActionsPerStep: 1})
		return nil, nil
	}

	require.NoError(t, d.Start(context.Background(), RunRequest{Task: "t", MaxSteps: 1, MaxActionsPerStep: 1}))
	assert.ErrorIs(t, nested, ErrRunInFlight)

	// Once the first run returned a new one may start.
	require.NoError(t, d.Start(context.Background(), RunRequest{Task: "again", MaxSteps: 1, MaxActionsPerStep: 1}))
	assert.Equal(t, []string{"Starting automation task: again"}, d.Session().Logs())
}

func TestStartRecoversPanic(t *testing.T) {
	fa := &fakeAgent{run: func(context.Context) (*agent.History, error) {
		panic("boom")
	}}
	d := newTestDriver(&fakeBuilder{agent: fa})

	require.NoError(t, d.Start(context.Background(), RunRequest{Task: "t", MaxSteps: 1, MaxActionsPerStep: 1}))
	logs := d.Session().Logs()
	assert.Equal(t, "Error: panic: boom", logs[len(logs)-1])
	assert.False(t, d.Session().Running())
}

func TestStartClearsLogsOfPreviousRun(t *testing.T) {
	fa := &fakeAgent{run: func(context.Context) (*agent.History, error) {
		return nil, errors.New("first")
	}}
	d := newTestDriver(&fakeBuilder{agent: fa})

	require.NoError(t, d.Start(context.Background(), RunRequest{Task: "one", MaxSteps: 1, MaxActionsPerStep: 1}))
	require.Len(t, d.Session().Logs(), 2)

	fa.run = nil
	require.NoError(t, d.Start(context.Background(), RunRequest{Task: "two", MaxSteps: 1, MaxActionsPerStep: 1}))
	assert.Equal(t, []string{"Starting automation task: two"}, d.Session().Logs())
}

func TestStartRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewCollector(reg)
	fa := &fakeAgent{run: func(context.Context) (*agent.History, error) {
		return &agent.History{Steps: []agent.StepRecord{
			{Step: 1, Actions: []llm.Action{{Type: llm.ActionClick}, {Type: llm.ActionFinish}}},
		}}, nil
	}}
	d := NewDriver(&fakeBuilder{agent: fa}, NewSession(), m, nil)

	require.NoError(t, d.Start(context.Background(), RunRequest{Task: "t", MaxSteps: 1, MaxActionsPerStep: 1}))
	_ = d.Start(context.Background(), RunRequest{Task: ""})

	const want = `
# HELP browser_agent_runs_total Automation runs by outcome
# TYPE browser_agent_runs_total counter
browser_agent_runs_total{outcome="rejected"} 1
browser_agent_runs_total{outcome="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want), "browser_agent_runs_total"))
}

func TestStartBuilderFailure(t *testing.T) {
	d := newTestDriver(&fakeBuilder{err: errors.New("bad config")})
	err := d.Start(context.Background(), RunRequest{Task: "t", MaxSteps: 1, MaxActionsPerStep: 1})
	assert.EqualError(t, err, "bad config")
	assert.False(t, d.Session().Running())
	assert.Empty(t, d.Session().Logs())
}
