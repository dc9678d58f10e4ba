package api

import (
	"errors"
	"fmt"
	"net/http"

	"spellbreak/internal/db"
	"spellbreak/internal/nats"
	"spellbreak/internal/schema"

	"github.com/gorilla/mux"
)

// RelationshipHandler serves the to-many linkage of O to R described by one
// relationship of O's schema.
type RelationshipHandler[O, R any] struct {
	owner   *schema.Schema[O]
	related *schema.Schema[R]
	rel     schema.Relationship

	owners    *db.Repository[O]
	targets   *db.Repository[R]
	links     *Linker
	publisher nats.Publisher
}

func NewRelationshipHandler[O, R any](owner *schema.Schema[O], related *schema.Schema[R], name string, owners *db.Repository[O], targets *db.Repository[R], links *Linker, publisher nats.Publisher) (*RelationshipHandler[O, R], error) {
	rel, ok := owner.Relationship(name)
	if !ok {
		return nil, fmt.Errorf("%s has no relationship %q", owner.Type, name)
	}
	if rel.Related != related.Type {
		return nil, fmt.Errorf("relationship %s.%s targets %q, not %q", owner.Type, name, rel.Related, related.Type)
	}
	return &RelationshipHandler[O, R]{
		owner:     owner,
		related:   related,
		rel:       *rel,
		owners:    owners,
		targets:   targets,
		links:     links,
		publisher: publisher,
	}, nil
}

// Register mounts the linkage endpoint under the owner's detail path.
func (h *RelationshipHandler[O, R]) Register(router *mux.Router, ownerPath string) {
	path := ownerPath + "/{id:[0-9]+}/relationships/" + h.rel.Name
	router.HandleFunc(path, h.Get).Methods(http.MethodGet).Name(string(h.rel.SelfRoute))
	router.HandleFunc(path, h.Update).Methods(http.MethodPatch)
}

func (h *RelationshipHandler[O, R]) ownerID(r *http.Request) (uint, error) {
	id, err := routeID(r, h.owner.Type)
	if err != nil {
		return 0, err
	}
	if _, err := h.owners.Get(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return 0, errNotFound(h.owner.Type, id)
		}
		return 0, err
	}
	return id, nil
}

func (h *RelationshipHandler[O, R]) writeLinkage(w http.ResponseWriter, r *http.Request, id uint) {
	ids, err := h.targets.LinkedIDs(r.Context(), h.rel.ForeignKey, id)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	data := make([]schema.Identifier, len(ids))
	for i, rid := range ids {
		data[i] = schema.Identifier{Type: h.related.Type, ID: schema.FormatID(rid)}
	}
	writeDocument(w, http.StatusOK, schema.Document{
		Data:  data,
		Links: h.links.RelationshipLinks(h.rel, schema.FormatID(id)),
	})
}

func (h *RelationshipHandler[O, R]) Get(w http.ResponseWriter, r *http.Request) {
	id, err := h.ownerID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	h.writeLinkage(w, r, id)
}

// Update replaces the whole linkage with the identifiers in the body.
func (h *RelationshipHandler[O, R]) Update(w http.ResponseWriter, r *http.Request) {
	if err := checkContentType(r); err != nil {
		WriteError(w, r, err)
		return
	}
	idents, err := schema.DecodeIdentifiers(r.Body)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	ids := make([]uint, 0, len(idents))
	for _, ident := range idents {
		if ident.Type != h.related.Type {
			WriteError(w, r, errTypeConflict(ident.Type, h.related.Type))
			return
		}
		rid, err := schema.ParseID(ident.ID)
		if err != nil {
			WriteError(w, r, errNotFound(h.related.Type, ident.ID))
			return
		}
		ids = append(ids, rid)
	}

	id, err := h.ownerID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.targets.ReplaceLinks(r.Context(), h.rel.ForeignKey, id, ids); err != nil {
		var missing *db.MissingError
		if errors.As(err, &missing) {
			err = errNotFound(h.related.Type, missing.IDs)
		}
		WriteError(w, r, err)
		return
	}

	publish(r.Context(), h.publisher, nats.NewEvent(h.owner.Type, schema.FormatID(id), nats.ActionRelationshipUpdated,
		map[string]any{h.rel.Name: ids}))

	h.writeLinkage(w, r, id)
}
