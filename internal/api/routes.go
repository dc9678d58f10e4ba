package api

import (
	"fmt"
	"net/http"
	"slices"

	"spellbreak/config"
	"spellbreak/internal/db"
	"spellbreak/internal/db/models"
	"spellbreak/internal/nats"
	"spellbreak/internal/schema"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

const (
	RouteUserMany     schema.RouteName = "user_many"
	RouteUserOne      schema.RouteName = "user_one"
	RouteTournMany    schema.RouteName = "tourn_many"
	RouteTournOne     schema.RouteName = "tourn_one"
	RouteRecordMany   schema.RouteName = "record_many"
	RouteRecordOne    schema.RouteName = "record_one"
	RouteUserRecords  schema.RouteName = "user_records"
	RouteTournRecords schema.RouteName = "tourn_records"
)

func OptionsFromConfig(cfg *config.APIConfig) Options {
	return Options{
		RejectUnknown: cfg.RejectUnknownFields(),
		PageSize:      cfg.PageSize,
		MaxPageSize:   cfg.MaxPageSize,
	}
}

// Register mounts every resource and relationship endpoint on router, backed
// by gdb, and checks that every route a schema refers to exists.
func Register(router *mux.Router, gdb *gorm.DB, publisher nats.Publisher, opts Options) error {
	links := NewLinker(router)

	userRepo := db.NewRepository[models.User](gdb)
	tournRepo := db.NewRepository[models.Tourn](gdb)
	recordRepo := db.NewRepository[models.Record](gdb)

	userSchema, tournSchema, recordSchema := UserSchema(), TournSchema(), RecordSchema()

	users := NewResourceHandler(userSchema, userRepo, links, publisher, opts, RouteUserMany, RouteUserOne)
	tourns := NewResourceHandler(tournSchema, tournRepo, links, publisher, opts, RouteTournMany, RouteTournOne)
	records := NewResourceHandler(recordSchema, recordRepo, links, publisher, opts, RouteRecordMany, RouteRecordOne)

	userRecords, err := NewRelationshipHandler(userSchema, recordSchema, "records", userRepo, recordRepo, links, publisher)
	if err != nil {
		return err
	}
	tournRecords, err := NewRelationshipHandler(tournSchema, recordSchema, "records", tournRepo, recordRepo, links, publisher)
	if err != nil {
		return err
	}

	users.Register(router, "/users")
	tourns.Register(router, "/tourns")
	records.Register(router, "/records")
	userRecords.Register(router, "/users")
	tournRecords.Register(router, "/tourns")

	router.NotFoundHandler = http.HandlerFunc(NotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(MethodNotAllowed)

	types := map[string]bool{TypeUser: true, TypeTourn: true, TypeRecord: true}
	var names []schema.RouteName
	names = append(names, users.Routes()...)
	names = append(names, tourns.Routes()...)
	names = append(names, records.Routes()...)
	return ValidateRoutes(router, types, names,
		slices.Concat(userSchema.Relationships, tournSchema.Relationships)...)
}

// ValidateRoutes fails when a route name is not registered on router or a
// relationship points at an unknown type.
func ValidateRoutes(router *mux.Router, types map[string]bool, names []schema.RouteName, rels ...schema.Relationship) error {
	for _, rel := range rels {
		if !types[rel.Related] {
			return fmt.Errorf("relationship %q targets unknown type %q", rel.Name, rel.Related)
		}
		names = append(names, rel.SelfRoute, rel.RelatedRoute)
	}
	for _, name := range names {
		if router.Get(string(name)) == nil {
			return fmt.Errorf("route %q is not registered", name)
		}
	}
	return nil
}
