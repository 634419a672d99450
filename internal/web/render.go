package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/aatumaykin/ghbackup/internal/backup"
	"github.com/aatumaykin/ghbackup/internal/dashboard"
	"github.com/aatumaykin/ghbackup/internal/storage"
	"github.com/aatumaykin/ghbackup/internal/version"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

var pages = []string{"index", "config", "repositories", "status", "404"}

// htmlRenderer keeps one template set per page so every page can define "content".
type htmlRenderer struct {
	pages map[string]*template.Template
}

func newRenderer(funcs template.FuncMap) (*htmlRenderer, error) {
	base, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFiles, "templates/layout.html")
	if err != nil {
		return nil, err
	}

	r := &htmlRenderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFiles, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("page %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Instance implements gin's render.HTMLRender.
func (r *htmlRenderer) Instance(name string, data any) render.Render {
	t, ok := r.pages[name]
	if !ok {
		t = r.pages["404"]
	}
	return render.HTML{Template: t, Name: "layout", Data: data}
}

func staticFS() http.FileSystem {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

var titleCase = cases.Title(language.English)

// statusLabel renders "running" as "Running".
func statusLabel(status storage.JobStatus) string {
	return titleCase.String(string(status))
}

func statusClass(status storage.JobStatus) string {
	switch status {
	case storage.JobCompleted:
		return "success"
	case storage.JobFailed:
		return "danger"
	case storage.JobRunning:
		return "primary"
	default:
		return "secondary"
	}
}

func formatTime(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return "Never"
		}
		return t.Local().Format("2006-01-02 15:04:05")
	case *time.Time:
		if t == nil {
			return "Never"
		}
		return formatTime(*t)
	default:
		return ""
	}
}

func formatDuration(job storage.BackupJob) string {
	d := job.Duration()
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}

func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatTime":     formatTime,
		"formatSize":     backup.FormatSize,
		"formatDuration": formatDuration,
		"statusLabel":    statusLabel,
		"statusClass":    statusClass,
		"alertClass":     alertClass,
		"deleteAttrs": func() template.HTMLAttr {
			return dashboard.DeleteAction().Attrs()
		},
		"backupAttrs": func() template.HTMLAttr {
			delay := time.Duration(s.cfg.UI.BackupSubmitDelayMS) * time.Millisecond
			return dashboard.BackupAction(delay).Attrs()
		},
	}
}

// uiSettings are rendered into <body> data attributes and read by app.js.
type uiSettings struct {
	RefreshMS  int64
	IdleMS     int64
	AutosaveMS int64
}

// render adds the layout data shared by every page.
func (s *Server) render(c *gin.Context, code int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Flashes"] = popFlashes(c)
	data["View"] = string(dashboard.ViewFromPath(c.Request.URL.Path))
	data["Version"] = version.Version
	data["UI"] = uiSettings{
		RefreshMS:  s.policy.Interval.Milliseconds(),
		IdleMS:     s.policy.IdleThreshold.Milliseconds(),
		AutosaveMS: s.cfg.UI.AutosaveQuiet().Milliseconds(),
	}
	c.HTML(code, page, data)
}

func (s *Server) handleNotFound(c *gin.Context) {
	s.render(c, http.StatusNotFound, "404", gin.H{"Title": "Page not found"})
}
