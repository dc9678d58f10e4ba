package admin

import "spellbreak/internal/schema"

// Column is one storage column as the console edits it. Admin writes go
// straight to the table and skip the resource schemas entirely.
type Column struct {
	Name     string
	Kind     schema.Kind
	Nullable bool
}

// Table is one storage table shown in the console. Columns are listed in
// display order; Search is matched case-insensitively.
type Table struct {
	Name    string
	Title   string
	Columns []Column
	Search  string
}

func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Editable lists every column except the storage-assigned id.
func (t Table) Editable() []Column {
	var cols []Column
	for _, c := range t.Columns {
		if c.Name != "id" {
			cols = append(cols, c)
		}
	}
	return cols
}

func integer(name string) Column { return Column{Name: name, Kind: schema.Integer} }

func text(name string) Column { return Column{Name: name, Kind: schema.String} }

func timestamp(name string) Column { return Column{Name: name, Kind: schema.Time} }

func nullable(c Column) Column {
	c.Nullable = true
	return c
}

var Tables = []Table{
	{
		Name:    "users",
		Title:   "Users",
		Columns: []Column{integer("id"), integer("discord_id"), text("username")},
		Search:  "username",
	},
	{
		Name:    "tourns",
		Title:   "Tourns",
		Columns: []Column{integer("id"), nullable(text("name"))},
		Search:  "name",
	},
	{
		Name:  "records",
		Title: "Records",
		Columns: []Column{
			integer("id"), timestamp("date"), integer("discord_id"), text("username"),
			nullable(text("tourny_name")), nullable(text("qualy_name")),
			nullable(text("scrimy_name")), nullable(text("game")),
			integer("place"), integer("kills"), integer("assists"), integer("damage"),
			nullable(integer("score")), nullable(integer("user_id")), nullable(integer("tourn_id")),
		},
		Search: "username",
	},
}

func lookup(name string) (Table, bool) {
	for _, t := range Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
