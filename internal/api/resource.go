package api

import (
	"errors"
	"net/http"

	"spellbreak/internal/db"
	"spellbreak/internal/nats"
	"spellbreak/internal/schema"

	"github.com/gorilla/mux"
)

type Options struct {
	RejectUnknown bool
	PageSize      int
	MaxPageSize   int
}

// ResourceHandler serves the list and detail endpoints of one resource type.
type ResourceHandler[T any] struct {
	schema    *schema.Schema[T]
	repo      *db.Repository[T]
	links     *Linker
	publisher nats.Publisher
	opts      Options

	many schema.RouteName
	one  schema.RouteName
}

func NewResourceHandler[T any](s *schema.Schema[T], repo *db.Repository[T], links *Linker, publisher nats.Publisher, opts Options, many, one schema.RouteName) *ResourceHandler[T] {
	return &ResourceHandler[T]{
		schema:    s,
		repo:      repo,
		links:     links,
		publisher: publisher,
		opts:      opts,
		many:      many,
		one:       one,
	}
}

// Register mounts the collection at path and the detail endpoint below it.
func (h *ResourceHandler[T]) Register(router *mux.Router, path string) {
	router.HandleFunc(path, h.List).Methods(http.MethodGet).Name(string(h.many))
	router.HandleFunc(path, h.Create).Methods(http.MethodPost)

	one := path + "/{id:[0-9]+}"
	router.HandleFunc(one, h.Get).Methods(http.MethodGet).Name(string(h.one))
	router.HandleFunc(one, h.Update).Methods(http.MethodPatch)
	router.HandleFunc(one, h.Delete).Methods(http.MethodDelete)
}

func (h *ResourceHandler[T]) Routes() []schema.RouteName {
	return []schema.RouteName{h.many, h.one}
}

func (h *ResourceHandler[T]) resource(rec *T) schema.Resource {
	id := h.schema.ID(rec)
	res := schema.Resource{
		Type:       h.schema.Type,
		ID:         id,
		Attributes: h.schema.Dump(rec),
		Links:      &schema.Links{Self: h.links.URL(h.one, "id", id)},
	}
	if len(h.schema.Relationships) > 0 {
		res.Relationships = make(map[string]schema.RelationshipObject, len(h.schema.Relationships))
		for _, rel := range h.schema.Relationships {
			res.Relationships[rel.Name] = schema.RelationshipObject{
				Links: h.links.RelationshipLinks(rel, id),
			}
		}
	}
	return res
}

func (h *ResourceHandler[T]) uniques(values map[string]any) []db.Unique {
	var out []db.Unique
	for _, u := range h.schema.UniqueValues(values) {
		out = append(out, db.Unique{Field: u.Field, Column: u.Column, Value: u.Value})
	}
	return out
}

func (h *ResourceHandler[T]) decode(r *http.Request) (*schema.Incoming, error) {
	if err := checkContentType(r); err != nil {
		return nil, err
	}
	in, err := schema.DecodeResource(r.Body)
	if err != nil {
		return nil, err
	}
	if in.Type != "" && in.Type != h.schema.Type {
		return nil, errTypeConflict(in.Type, h.schema.Type)
	}
	return in, nil
}

func (h *ResourceHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	p, err := parsePage(q, h.opts)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	filters, err := parseFilters(q, h.schema)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	items, total, err := h.repo.List(r.Context(), db.ListOptions{
		Filters: filters,
		Offset:  p.offset(),
		Limit:   p.size,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	data := make([]schema.Resource, len(items))
	for i := range items {
		data[i] = h.resource(&items[i])
	}

	writeDocument(w, http.StatusOK, schema.Document{
		Data:  data,
		Links: pageLinks(r.URL, p, total),
		Meta:  map[string]any{"count": total},
	})
}

func (h *ResourceHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	in, err := h.decode(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if in.Type == "" {
		WriteError(w, r, errMissingType)
		return
	}
	if in.HasID {
		WriteError(w, r, errClientID)
		return
	}

	values, err := h.schema.Load(in.Attributes, schema.LoadOptions{
		Mode:          schema.Create,
		RejectUnknown: h.opts.RejectUnknown,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	rec := new(T)
	h.schema.Apply(rec, values)
	if err := h.repo.Create(r.Context(), rec, h.uniques(values)); err != nil {
		WriteError(w, r, err)
		return
	}

	res := h.resource(rec)
	publish(r.Context(), h.publisher, nats.NewEvent(res.Type, res.ID, nats.ActionCreated, res.Attributes))

	w.Header().Set("Location", res.Links.Self)
	writeDocument(w, http.StatusCreated, schema.Document{
		Data:  res,
		Links: &schema.Links{Self: res.Links.Self},
	})
}

func (h *ResourceHandler[T]) Get(w http.ResponseWriter, r *http.Request) {
	id, err := routeID(r, h.schema.Type)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	rec, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		err = errNotFound(h.schema.Type, id)
	}
	if err != nil {
		WriteError(w, r, err)
		return
	}

	res := h.resource(rec)
	writeDocument(w, http.StatusOK, schema.Document{
		Data:  res,
		Links: &schema.Links{Self: res.Links.Self},
	})
}

func (h *ResourceHandler[T]) Update(w http.ResponseWriter, r *http.Request) {
	id, err := routeID(r, h.schema.Type)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	in, err := h.decode(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if in.HasID {
		if bodyID, err := schema.ParseID(in.ID); err != nil || bodyID != id {
			WriteError(w, r, errIDMismatch)
			return
		}
	}

	values, err := h.schema.Load(in.Attributes, schema.LoadOptions{
		Mode:          schema.Update,
		RejectUnknown: h.opts.RejectUnknown,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	rec, err := h.repo.Update(r.Context(), id, h.schema.Columns(values), h.uniques(values), func(rec *T) error {
		h.schema.Apply(rec, values)
		return nil
	})
	if errors.Is(err, db.ErrNotFound) {
		err = errNotFound(h.schema.Type, id)
	}
	if err != nil {
		WriteError(w, r, err)
		return
	}

	res := h.resource(rec)
	publish(r.Context(), h.publisher, nats.NewEvent(res.Type, res.ID, nats.ActionUpdated, res.Attributes))

	writeDocument(w, http.StatusOK, schema.Document{
		Data:  res,
		Links: &schema.Links{Self: res.Links.Self},
	})
}

func (h *ResourceHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := routeID(r, h.schema.Type)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	err = h.repo.Delete(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		err = errNotFound(h.schema.Type, id)
	}
	if err != nil {
		WriteError(w, r, err)
		return
	}

	publish(r.Context(), h.publisher, nats.NewEvent(h.schema.Type, schema.FormatID(id), nats.ActionDeleted, nil))

	writeDocument(w, http.StatusOK, schema.Document{
		Meta: map[string]any{"message": "Object successfully deleted"},
	})
}
