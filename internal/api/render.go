package api

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"net/url"

	"spellbreak/internal/nats"
	"spellbreak/internal/schema"

	"github.com/google/jsonapi"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// Linker builds URLs from named routes.
type Linker struct {
	router *mux.Router
}

func NewLinker(router *mux.Router) *Linker {
	return &Linker{router: router}
}

func (l *Linker) URL(name schema.RouteName, pairs ...string) string {
	route := l.router.Get(string(name))
	if route == nil {
		return ""
	}
	u, err := route.URL(pairs...)
	if err != nil {
		return ""
	}
	return u.String()
}

// RelationshipLinks returns the linkage and related-collection links of rel
// on the resource with the given id.
func (l *Linker) RelationshipLinks(rel schema.Relationship, id string) *schema.Links {
	related := l.URL(rel.RelatedRoute)
	if rel.RelatedFilter != "" {
		related += "?" + url.Values{"filter[" + rel.RelatedFilter + "]": {id}}.Encode()
	}
	return &schema.Links{
		Self:    l.URL(rel.SelfRoute, "id", id),
		Related: related,
	}
}

func writeDocument(w http.ResponseWriter, status int, doc schema.Document) {
	doc.JSONAPI = &schema.JSONAPI{Version: schema.Version}
	w.Header().Set("Content-Type", jsonapi.MediaType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		log.WithError(err).Error("Failed to write response")
	}
}

// checkContentType accepts the JSON:API media type without parameters, or
// plain application/json.
func checkContentType(r *http.Request) error {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return errMediaType
	}
	switch mediaType {
	case jsonapi.MediaType:
		if len(params) > 0 {
			return errMediaType
		}
		return nil
	case "application/json":
		return nil
	}
	return errMediaType
}

func routeID(r *http.Request, resourceType string) (uint, error) {
	raw := mux.Vars(r)["id"]
	id, err := schema.ParseID(raw)
	if err != nil {
		return 0, errNotFound(resourceType, raw)
	}
	return id, nil
}

func publish(ctx context.Context, p nats.Publisher, ev nats.Event) {
	// The write is committed; a cancelled request must not drop the event.
	if err := p.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"type":   ev.Type,
			"id":     ev.ResourceID,
			"action": ev.Action,
		}).Warn("Failed to publish resource event")
	}
}
