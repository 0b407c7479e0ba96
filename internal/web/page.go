package web

import (
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Thejas775/Browser-Agent/internal/control"
)

//go:embed templates/*.html
var templateFS embed.FS

const indexTemplate = "index.html"

type renderer struct {
	tmpl *template.Template
}

func newRenderer() *renderer {
	return &renderer{tmpl: template.Must(template.ParseFS(templateFS, "templates/*.html"))}
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}

// pageView is everything index.html needs for one render.
type pageView struct {
	Task    string
	Steps   int
	Actions int
	Error   string
	Running bool

	ShowLogs bool
	Logs     []string

	RefreshSeconds int

	MinSteps, MaxSteps     int
	MinActions, MaxActions int
}

// view renders form, or the run in flight when there is one.
func (s *Server) view(form control.RunRequest, errMsg string) pageView {
	st := s.driver.Session().State()
	if st.Request != nil {
		form = *st.Request
	}
	return pageView{
		Task:           form.Task,
		Steps:          form.MaxSteps,
		Actions:        form.MaxActionsPerStep,
		Error:          errMsg,
		Running:        st.Running,
		ShowLogs:       s.ui.ShowLogs,
		Logs:           st.Logs,
		RefreshSeconds: refreshSeconds(s.ui.RefreshInterval),
		MinSteps:       control.MinSteps,
		MaxSteps:       control.MaxSteps,
		MinActions:     control.MinActionsPerStep,
		MaxActions:     control.MaxActionsPerStep,
	}
}

// meta refresh only takes whole seconds.
func refreshSeconds(d time.Duration) int {
	if n := int(d / time.Second); n > 1 {
		return n
	}
	return 1
}
