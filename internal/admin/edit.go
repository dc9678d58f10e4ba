package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"spellbreak/internal/db"
	"spellbreak/internal/schema"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type formPage struct {
	Table  Table
	Tables []Table
	ID     string
	Values map[string]string
	Errors []string
}

// formValues reads the editable columns of t from the posted form. Columns
// missing from the form are skipped; an empty value is NULL for nullable
// columns and an error otherwise.
func formValues(t Table, r *http.Request, requireAll bool) (map[string]any, []string) {
	values := map[string]any{}
	var errs []string
	for _, c := range t.Editable() {
		raw, ok := r.PostForm[c.Name]
		if !ok {
			if requireAll && !c.Nullable {
				errs = append(errs, fmt.Sprintf("%s: missing value", c.Name))
			}
			continue
		}
		v, err := parseColumn(c, strings.TrimSpace(raw[0]))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", c.Name, err))
			continue
		}
		values[c.Name] = v
	}
	return values, errs
}

func parseColumn(c Column, raw string) (any, error) {
	if raw == "" {
		if c.Nullable {
			return nil, nil
		}
		if c.Kind != schema.String {
			return nil, errors.New("value required")
		}
	}
	switch c.Kind {
	case schema.Integer:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.New("not a valid integer")
		}
		return n, nil
	case schema.Time:
		return schema.ParseTime(raw)
	default:
		return raw, nil
	}
}

func (h *Handler) table(w http.ResponseWriter, r *http.Request) (Table, bool) {
	t, ok := lookup(mux.Vars(r)["table"])
	if !ok {
		http.NotFound(w, r)
	}
	return t, ok
}

// rowID reads the numeric id from the route; ok is false once a 404 has
// been written.
func rowID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := schema.ParseID(mux.Vars(r)["id"])
	if err != nil {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func (h *Handler) listURL(t Table) string {
	return strings.TrimSuffix(h.prefix, "/") + "/" + t.Name
}

func (h *Handler) NewForm(w http.ResponseWriter, r *http.Request) {
	t, ok := h.table(w, r)
	if !ok {
		return
	}
	h.render(w, "form.html", formPage{Table: t, Tables: Tables, Values: map[string]string{}})
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	t, ok := h.table(w, r)
	if !ok {
		return
	}
	id, ok := rowID(w, r)
	if !ok {
		return
	}

	var rows []map[string]any
	err := h.db.WithContext(r.Context()).Table(t.Name).Select(t.ColumnNames()).
		Where("id = ?", id).Limit(1).Find(&rows).Error
	if err != nil {
		h.fail(w, err)
		return
	}
	if len(rows) == 0 {
		http.NotFound(w, r)
		return
	}

	values := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		values[c.Name] = formatCell(rows[0][c.Name])
	}
	h.render(w, "form.html", formPage{Table: t, Tables: Tables, ID: schema.FormatID(id), Values: values})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	t, ok := h.table(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	values, errs := formValues(t, r, true)
	if len(errs) > 0 {
		h.rejectForm(w, r, t, "", http.StatusBadRequest, errs)
		return
	}

	if err := h.db.WithContext(r.Context()).Table(t.Name).Create(values).Error; err != nil {
		h.writeFailed(w, r, t, "", err)
		return
	}
	log.WithFields(log.Fields{"table": t.Name}).Info("Admin created row")
	http.Redirect(w, r, h.listURL(t), http.StatusSeeOther)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	t, ok := h.table(w, r)
	if !ok {
		return
	}
	id, ok := rowID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	values, errs := formValues(t, r, false)
	if len(errs) > 0 {
		h.rejectForm(w, r, t, schema.FormatID(id), http.StatusBadRequest, errs)
		return
	}
	if len(values) == 0 {
		http.Redirect(w, r, h.listURL(t), http.StatusSeeOther)
		return
	}

	res := h.db.WithContext(r.Context()).Table(t.Name).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		h.writeFailed(w, r, t, schema.FormatID(id), res.Error)
		return
	}
	if res.RowsAffected == 0 {
		http.NotFound(w, r)
		return
	}
	log.WithFields(log.Fields{"table": t.Name, "id": id}).Info("Admin updated row")
	http.Redirect(w, r, h.listURL(t), http.StatusSeeOther)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	t, ok := h.table(w, r)
	if !ok {
		return
	}
	id, ok := rowID(w, r)
	if !ok {
		return
	}

	res := h.db.WithContext(r.Context()).Exec("DELETE FROM "+t.Name+" WHERE id = ?", id)
	if res.Error != nil {
		h.fail(w, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		http.NotFound(w, r)
		return
	}
	log.WithFields(log.Fields{"table": t.Name, "id": id}).Info("Admin deleted row")
	http.Redirect(w, r, h.listURL(t), http.StatusSeeOther)
}

// writeFailed reports a rejected write back on the form. Constraint
// violations are the caller's fault; anything else is a server error.
func (h *Handler) writeFailed(w http.ResponseWriter, r *http.Request, t Table, id string, err error) {
	err = db.TranslateError(err)
	if errors.Is(err, db.ErrConflict) {
		h.rejectForm(w, r, t, id, http.StatusConflict, []string{err.Error()})
		return
	}
	h.fail(w, err)
}

func (h *Handler) rejectForm(w http.ResponseWriter, r *http.Request, t Table, id string, status int, errs []string) {
	values := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		values[c.Name] = r.PostForm.Get(c.Name)
	}
	h.renderStatus(w, status, "form.html", formPage{Table: t, Tables: Tables, ID: id, Values: values, Errors: errs})
}
