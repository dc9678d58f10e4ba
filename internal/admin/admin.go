package admin

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spellbreak/internal/schema"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler serves a tabular console over the storage tables. It reads and
// writes rows directly and never goes through the resource schemas, so
// nothing it stores is validated beyond the table constraints.
type Handler struct {
	db       *gorm.DB
	pageSize int
	prefix   string
	tmpl     *template.Template
}

func New(gdb *gorm.DB, pageSize int) (*Handler, error) {
	tmpl, err := template.New("admin").Funcs(template.FuncMap{
		"cell": formatCell,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse admin templates: %w", err)
	}
	return &Handler{db: gdb, pageSize: pageSize, tmpl: tmpl}, nil
}

// Register mounts the console under prefix and returns its subrouter so the
// caller can gate it.
func (h *Handler) Register(router *mux.Router, prefix string) *mux.Router {
	h.prefix = prefix
	sub := router.PathPrefix(prefix).Subrouter()
	sub.HandleFunc("/", h.Index).Methods(http.MethodGet)
	sub.HandleFunc("/{table}", h.List).Methods(http.MethodGet)
	sub.HandleFunc("/{table}", h.Create).Methods(http.MethodPost)
	sub.HandleFunc("/{table}/new", h.NewForm).Methods(http.MethodGet)
	sub.HandleFunc("/{table}/export", h.Export).Methods(http.MethodGet)
	sub.HandleFunc("/{table}/{id:[0-9]+}", h.Edit).Methods(http.MethodGet)
	sub.HandleFunc("/{table}/{id:[0-9]+}", h.Update).Methods(http.MethodPost)
	sub.HandleFunc("/{table}/{id:[0-9]+}/delete", h.Delete).Methods(http.MethodPost)
	return sub
}

type tableSummary struct {
	Table
	Count int64
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	summaries := make([]tableSummary, 0, len(Tables))
	for _, t := range Tables {
		var n int64
		if err := h.db.WithContext(r.Context()).Table(t.Name).Count(&n).Error; err != nil {
			h.fail(w, err)
			return
		}
		summaries = append(summaries, tableSummary{Table: t, Count: n})
	}
	h.render(w, "index.html", map[string]any{"Tables": summaries})
}

type listPage struct {
	Table  Table
	Tables []Table
	Rows   []map[string]any
	Query  string
	Page   int
	Pages  int
	Total  int64
	Prev   int
	Next   int
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	t, ok := lookup(mux.Vars(r)["table"])
	if !ok {
		http.NotFound(w, r)
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	pageNum, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || pageNum < 1 {
		pageNum = 1
	}

	rows, total, err := h.rows(r.Context(), t, q, (pageNum-1)*h.pageSize, h.pageSize)
	if err != nil {
		h.fail(w, err)
		return
	}

	pages := int((total + int64(h.pageSize) - 1) / int64(h.pageSize))
	if pages < 1 {
		pages = 1
	}
	data := listPage{
		Table:  t,
		Tables: Tables,
		Rows:   rows,
		Query:  q,
		Page:   pageNum,
		Pages:  pages,
		Total:  total,
	}
	if pageNum > 1 {
		data.Prev = min(pageNum-1, pages)
	}
	if pageNum < pages {
		data.Next = pageNum + 1
	}
	h.render(w, "table.html", data)
}

// rows returns one page of t matching q. A zero limit returns every match.
func (h *Handler) rows(ctx context.Context, t Table, q string, offset, limit int) ([]map[string]any, int64, error) {
	scoped := func() *gorm.DB {
		tx := h.db.WithContext(ctx).Table(t.Name)
		if q != "" {
			tx = tx.Where("LOWER("+t.Search+`) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(q))+"%")
		}
		return tx
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", t.Name, err)
	}

	tx := scoped().Select(t.ColumnNames()).Order("id")
	if limit > 0 {
		tx = tx.Offset(offset).Limit(limit)
	}
	rows := []map[string]any{}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list %s: %w", t.Name, err)
	}
	return rows, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	h.renderStatus(w, http.StatusOK, name, data)
}

func (h *Handler) renderStatus(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.WithError(err).WithField("template", name).Error("Failed to render admin page")
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	log.WithError(err).Error("Admin query failed")
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func formatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case time.Time:
		return schema.FormatTime(v)
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
