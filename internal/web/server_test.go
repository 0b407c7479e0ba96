package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thejas775/Browser-Agent/internal/agent"
	"github.com/Thejas775/Browser-Agent/internal/config"
	"github.com/Thejas775/Browser-Agent/internal/control"
	"github.com/Thejas775/Browser-Agent/internal/metrics"
)

type stubAgent struct {
	maxSteps   int
	maxActions int
	run        func(ctx context.Context) (*agent.History, error)
}

func (a *stubAgent) SetMaxActionsPerStep(n int) { a.maxActions = n }

func (a *stubAgent) Run(ctx context.Context, maxSteps int) (*agent.History, error) {
	a.maxSteps = maxSteps
	if a.run == nil {
		return &agent.History{ExitReason: agent.ReasonFinished}, nil
	}
	return a.run(ctx)
}

type stubBuilder struct {
	agent *stubAgent
	calls int
}

func (b *stubBuilder) NewAgent(string) (control.AgentRunner, error) {
	b.calls++
	return b.agent, nil
}

func testUI(showLogs bool) config.UIConfig {
	return config.UIConfig{
		ShowLogs:          showLogs,
		DefaultMaxSteps:   25,
		DefaultMaxActions: 4,
		RefreshInterval:   time.Second,
	}
}

func newTestServer(b control.Builder, showLogs bool) (*Server, *control.Driver) {
	d := control.NewDriver(b, control.NewSession(), nil, nil)
	return New(d, testUI(showLogs)), d
}

func do(s *Server, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func startForm(task, steps, actions string) url.Values {
	return url.Values{"task": {task}, "max_steps": {steps}, "max_actions": {actions}}
}

func TestIndexIdle(t *testing.T) {
	s, _ := newTestServer(&stubBuilder{agent: &stubAgent{}}, false)

	rec := do(s, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<title>Browser Automation Control</title>")
	assert.Contains(t, body, `name="max_steps" min="1" max="100" value="25"`)
	assert.Contains(t, body, `name="max_actions" min="1" max="10" value="4"`)
	assert.Contains(t, body, `id="start" disabled`)
	assert.NotContains(t, body, `http-equiv="refresh"`)
	assert.NotContains(t, body, "Automation Logs")
}

func TestStartMissingKeyShowsInlineError(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(config.APIKeyEnv, "")
	f := control.NewFactory(&config.Config{}, nil)
	s, d := newTestServer(f, true)

	rec := do(s, http.MethodPost, "/start", startForm("search for cats", "25", "4"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<div class="error" role="alert">GEMINI_API_KEY is not set</div>`)
	assert.False(t, d.Session().Running())
	assert.Empty(t, d.Session().Logs())
}

func TestStartRunsAndRerenders(t *testing.T) {
	a := &stubAgent{}
	s, d := newTestServer(&stubBuilder{agent: a}, true)

	rec := do(s, http.MethodPost, "/start", startForm("search for cats", "30", "5"))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Equal(t, 30, a.maxSteps)
	assert.Equal(t, 5, a.maxActions)
	assert.False(t, d.Session().Running())
	assert.Contains(t, body, `value="search for cats"`)
	assert.Contains(t, body, "Starting automation task: search for cats")
	assert.NotContains(t, body, `id="start" disabled`)
}

func TestStartRunErrorIsLogged(t *testing.T) {
	a := &stubAgent{run: func(context.Context) (*agent.History, error) {
		return nil, errors.New("no response")
	}}
	s, d := newTestServer(&stubBuilder{agent: a}, true)

	rec := do(s, http.MethodPost, "/start", startForm("search for cats", "25", "4"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<div>Error: no response</div>")
	assert.NotContains(t, rec.Body.String(), `class="error"`)
	assert.False(t, d.Session().Running())
}

func TestStartEmptyTaskDoesNotRun(t *testing.T) {
	b := &stubBuilder{agent: &stubAgent{}}
	s, _ := newTestServer(b, false)

	rec := do(s, http.MethodPost, "/start", startForm("  ", "25", "4"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, b.calls)
	assert.Contains(t, rec.Body.String(), `id="start" disabled`)
}

func TestStartClampsAndDefaultsFields(t *testing.T) {
	a := &stubAgent{}
	s, _ := newTestServer(&stubBuilder{agent: a}, false)

	do(s, http.MethodPost, "/start", startForm("t", "500", "abc"))
	assert.Equal(t, 100, a.maxSteps)
	assert.Equal(t, 4, a.maxActions)

	do(s, http.MethodPost, "/start", startForm("t", "-1", "11"))
	assert.Equal(t, 1, a.maxSteps)
	assert.Equal(t, 10, a.maxActions)
}

func TestPageWhileRunningAndStop(t *testing.T) {
	a := &stubAgent{}
	s, d := newTestServer(&stubBuilder{agent: a}, true)

	var during, afterStop string
	var state control.State
	a.run = func(context.Context) (*agent.History, error) {
		during = do(s, http.MethodGet, "/", nil).Body.String()

		rec := do(s, http.MethodPost, "/stop", url.Values{})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))

		afterStop = do(s, http.MethodGet, "/", nil).Body.String()
		require.NoError(t, json.Unmarshal(do(s, http.MethodGet, "/logs", nil).Body.Bytes(), &state))
		return nil, nil
	}

	do(s, http.MethodPost, "/start", startForm("search for cats", "30", "5"))

	assert.Contains(t, during, `<meta http-equiv="refresh" content="1;url=/">`)
	assert.Contains(t, during, `id="stop"`)
	assert.Contains(t, during, `value="search for cats" disabled`)
	assert.Contains(t, during, `value="30" disabled`)
	assert.Contains(t, during, `value="5" disabled`)
	assert.NotContains(t, afterStop, `http-equiv="refresh"`)

	assert.False(t, state.Running)
	assert.Equal(t, []string{"Starting automation task: search for cats", "Automation stopped by user"}, state.Logs)
	assert.False(t, d.Session().Running())
}

func TestStopWhenIdleIsNoop(t *testing.T) {
	s, d := newTestServer(&stubBuilder{agent: &stubAgent{}}, false)

	rec := do(s, http.MethodPost, "/stop", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, d.Session().Logs())
}

func TestSecondStartWhileInFlight(t *testing.T) {
	a := &stubAgent{}
	s, _ := newTestServer(&stubBuilder{agent: a}, false)

	var code int
	var body string
	a.run = func(context.Context) (*agent.History, error) {
		a.run = nil
		rec := do(s, http.MethodPost, "/start", startForm("other", "25", "4"))
		code, body = rec.Code, rec.Body.String()
		return nil, nil
	}
	do(s, http.MethodPost, "/start", startForm("first", "25", "4"))

	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, body, control.ErrRunInFlight.Error())
	assert.Contains(t, body, `value="first" disabled`)
}

func TestLogsJSON(t *testing.T) {
	s, _ := newTestServer(&stubBuilder{agent: &stubAgent{}}, false)

	rec := do(s, http.MethodGet, "/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"running":false,"logs":[]}`, rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	d := control.NewDriver(&stubBuilder{agent: &stubAgent{}}, control.NewSession(), nil, nil)
	s := New(d, testUI(false), WithMetrics(metrics.NewCollector(reg), reg))

	rec := do(s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `browser_agent_http_requests_total{method="GET",path="/healthz",status="200"} 1`)
}

func TestRefreshSeconds(t *testing.T) {
	assert.Equal(t, 1, refreshSeconds(0))
	assert.Equal(t, 1, refreshSeconds(500*time.Millisecond))
	assert.Equal(t, 3, refreshSeconds(3*time.Second))
}
