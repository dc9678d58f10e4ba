package api

import (
	"time"

	"spellbreak/internal/db/models"
	"spellbreak/internal/schema"
)

const (
	TypeUser   = "user"
	TypeTourn  = "tourn"
	TypeRecord = "record"
)

func UserSchema() *schema.Schema[models.User] {
	return &schema.Schema[models.User]{
		Type: TypeUser,
		Fields: []schema.Field[models.User]{
			{
				Name: schema.IDField, Column: "id", Kind: schema.Integer, ReadOnly: true,
				Get: func(u *models.User) any { return u.ID },
			},
			{
				Name: "discord_id", Column: "discord_id", Kind: schema.Integer, Required: true, Unique: true,
				Get: func(u *models.User) any { return u.DiscordID },
				Set: func(u *models.User, v any) { u.DiscordID = v.(int64) },
			},
			{
				Name: "username", Column: "username", Kind: schema.String, Required: true, Unique: true, MaxLength: 80,
				Get: func(u *models.User) any { return u.Username },
				Set: func(u *models.User, v any) { u.Username = v.(string) },
			},
		},
		Relationships: []schema.Relationship{
			{
				Name:          "records",
				Related:       TypeRecord,
				Many:          true,
				ForeignKey:    "user_id",
				SelfRoute:     RouteUserRecords,
				RelatedRoute:  RouteRecordMany,
				RelatedFilter: "user",
			},
		},
	}
}

func TournSchema() *schema.Schema[models.Tourn] {
	return &schema.Schema[models.Tourn]{
		Type: TypeTourn,
		Fields: []schema.Field[models.Tourn]{
			{
				Name: schema.IDField, Column: "id", Kind: schema.Integer, ReadOnly: true,
				Get: func(t *models.Tourn) any { return t.ID },
			},
			{
				Name: "name", Column: "name", Kind: schema.String, Nullable: true, MaxLength: 200,
				Get: func(t *models.Tourn) any { return t.Name },
				Set: func(t *models.Tourn, v any) { t.Name = schema.StringPtr(v) },
			},
		},
		Relationships: []schema.Relationship{
			{
				Name:          "records",
				Related:       TypeRecord,
				Many:          true,
				ForeignKey:    "tourn_id",
				SelfRoute:     RouteTournRecords,
				RelatedRoute:  RouteRecordMany,
				RelatedFilter: "tourn",
			},
		},
	}
}

// RecordSchema exposes the denormalized record attributes. The user and
// tourn linkage is only reachable through the relationship routes and the
// filter[user] / filter[tourn] parameters.
func RecordSchema() *schema.Schema[models.Record] {
	optional := func(name string, get func(*models.Record) **string) schema.Field[models.Record] {
		return schema.Field[models.Record]{
			Name: name, Column: name, Kind: schema.String, Nullable: true, MaxLength: 200,
			Get: func(r *models.Record) any { return *get(r) },
			Set: func(r *models.Record, v any) { *get(r) = schema.StringPtr(v) },
		}
	}
	stat := func(name string, get func(*models.Record) *int) schema.Field[models.Record] {
		return schema.Field[models.Record]{
			Name: name, Column: name, Kind: schema.Integer, Required: true,
			Get: func(r *models.Record) any { return *get(r) },
			Set: func(r *models.Record, v any) { *get(r) = schema.Int(v) },
		}
	}

	return &schema.Schema[models.Record]{
		Type: TypeRecord,
		Fields: []schema.Field[models.Record]{
			{
				Name: schema.IDField, Column: "id", Kind: schema.Integer, ReadOnly: true,
				Get: func(r *models.Record) any { return r.ID },
			},
			{
				Name: "date", Column: "date", Kind: schema.Time, WriteOnly: true,
				Default: func() any { return time.Now().UTC() },
				Get:     func(r *models.Record) any { return r.Date },
				Set:     func(r *models.Record, v any) { r.Date = v.(time.Time) },
			},
			{
				Name: "discord_id", Column: "discord_id", Kind: schema.Integer, Required: true,
				Get: func(r *models.Record) any { return r.DiscordID },
				Set: func(r *models.Record, v any) { r.DiscordID = v.(int64) },
			},
			{
				Name: "username", Column: "username", Kind: schema.String, Required: true, MaxLength: 80,
				Get: func(r *models.Record) any { return r.Username },
				Set: func(r *models.Record, v any) { r.Username = v.(string) },
			},
			optional("tourny_name", func(r *models.Record) **string { return &r.TournyName }),
			optional("qualy_name", func(r *models.Record) **string { return &r.QualyName }),
			optional("scrimy_name", func(r *models.Record) **string { return &r.ScrimyName }),
			optional("game", func(r *models.Record) **string { return &r.Game }),
			stat("place", func(r *models.Record) *int { return &r.Place }),
			stat("kills", func(r *models.Record) *int { return &r.Kills }),
			stat("assists", func(r *models.Record) *int { return &r.Assists }),
			stat("damage", func(r *models.Record) *int { return &r.Damage }),
			{
				Name: "score", Column: "score", Kind: schema.Integer, Nullable: true,
				Get: func(r *models.Record) any { return r.Score },
				Set: func(r *models.Record, v any) { r.Score = schema.IntPtr(v) },
			},
		},
		LinkFilters: map[string]string{
			"user":  "user_id",
			"tourn": "tourn_id",
		},
	}
}
