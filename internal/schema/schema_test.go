package schema

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type match struct {
	ID     uint
	Player string
	Kills  int
	Note   *string
	Played time.Time
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func matchSchema() *Schema[match] {
	return &Schema[match]{
		Type: "match",
		Fields: []Field[match]{
			{
				Name: IDField, Column: "id", Kind: Integer, ReadOnly: true,
				Get: func(m *match) any { return m.ID },
			},
			{
				Name: "player", Column: "player", Kind: String, Required: true, Unique: true,
				Get: func(m *match) any { return m.Player },
				Set: func(m *match, v any) { m.Player = v.(string) },
			},
			{
				Name: "kills", Column: "kills", Kind: Integer, Required: true,
				Get: func(m *match) any { return m.Kills },
				Set: func(m *match, v any) { m.Kills = int(v.(int64)) },
			},
			{
				Name: "note", Column: "note", Kind: String, Nullable: true,
				Get: func(m *match) any { return m.Note },
				Set: func(m *match, v any) { m.Note = StringPtr(v) },
			},
			{
				Name: "played", Column: "played", Kind: Time, WriteOnly: true,
				Default: func() any { return fixedNow },
				Get:     func(m *match) any { return m.Played },
				Set:     func(m *match, v any) { m.Played = v.(time.Time) },
			},
		},
	}
}

func attrs(t *testing.T, s string) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func fieldsOf(err error) []string {
	var verrs ValidationErrors
	if ve, ok := err.(ValidationErrors); ok {
		verrs = ve
	}
	out := make([]string, len(verrs))
	for i, e := range verrs {
		out[i] = e.Field
	}
	return out
}

func TestLoadCreate(t *testing.T) {
	s := matchSchema()

	values, err := s.Load(attrs(t, `{"player":"tito","kills":3}`), LoadOptions{Mode: Create, RejectUnknown: true})
	require.NoError(t, err)

	want := map[string]any{"player": "tito", "kills": int64(3), "played": fixedNow}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	s := matchSchema()

	tests := []struct {
		name   string
		body   string
		mode   Mode
		reject bool
		want   []string
	}{
		{"missing required", `{"player":"tito"}`, Create, true, []string{"kills"}},
		{"wrong type", `{"player":1,"kills":"many"}`, Create, true, []string{"player", "kills"}},
		{"fractional integer", `{"player":"tito","kills":1.5}`, Create, true, []string{"kills"}},
		{"null on required", `{"player":null,"kills":1}`, Create, true, []string{"player"}},
		{"bad datetime", `{"player":"a","kills":1,"played":"yesterday"}`, Create, true, []string{"played"}},
		{"unknown rejected", `{"player":"a","kills":1,"rank":2}`, Create, true, []string{"rank"}},
		{"read-only id", `{"id":4,"kills":1}`, Update, false, []string{"id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Load(attrs(t, tt.body), LoadOptions{Mode: tt.mode, RejectUnknown: tt.reject})
			require.Error(t, err)
			assert.Equal(t, tt.want, fieldsOf(err))
		})
	}
}

func TestLoadUpdateIsPartial(t *testing.T) {
	s := matchSchema()

	values, err := s.Load(attrs(t, `{"kills":5,"note":null,"extra":true}`), LoadOptions{Mode: Update})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"kills": int64(5), "note": nil}, values)
}

func TestLoadKeepsInt64Precision(t *testing.T) {
	s := matchSchema()

	values, err := s.Load(attrs(t, `{"kills":9007199254740993}`), LoadOptions{Mode: Update})
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), values["kills"])
}

func TestApplyAndDump(t *testing.T) {
	s := matchSchema()
	m := &match{ID: 7, Player: "tito", Kills: 1}

	columns := s.Apply(m, map[string]any{"kills": int64(5), "note": "gg"})
	assert.Equal(t, []string{"kills", "note"}, columns)
	assert.Equal(t, 5, m.Kills)
	require.NotNil(t, m.Note)
	assert.Equal(t, "gg", *m.Note)

	dumped := s.Dump(m)
	assert.NotContains(t, dumped, "id")
	assert.NotContains(t, dumped, "played", "write-only fields are never dumped")
	assert.Equal(t, "tito", dumped["player"])
	assert.Equal(t, "7", s.ID(m))
}

func TestParseFilter(t *testing.T) {
	s := matchSchema()

	col, v, err := s.ParseFilter("kills", "4")
	require.NoError(t, err)
	assert.Equal(t, "kills", col)
	assert.Equal(t, int64(4), v)

	_, _, err = s.ParseFilter("kills", "four")
	assert.Error(t, err)

	_, _, err = s.ParseFilter("played", "2024-01-01")
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "filter[played]", fe.Pointer())
}

func TestUniqueValues(t *testing.T) {
	s := matchSchema()
	got := s.UniqueValues(map[string]any{"player": "tito", "kills": int64(1)})
	assert.Equal(t, []UniqueValue{{Field: "player", Column: "player", Value: "tito"}}, got)
}

func TestParseTime(t *testing.T) {
	for _, in := range []string{"2024-05-01T12:00:00Z", "2024-05-01T14:00:00+02:00", "2024-05-01T12:00:00", "2024-05-01T12:00", "2024-05-01 12:00:00"} {
		got, err := ParseTime(in)
		require.NoError(t, err, in)
		assert.True(t, fixedNow.Equal(got), in)
	}
}

func TestDecodeResource(t *testing.T) {
	res, err := DecodeResource(strings.NewReader(`{"data":{"type":"match","id":"3","attributes":{"kills":2}}}`))
	require.NoError(t, err)
	assert.Equal(t, "match", res.Type)
	assert.True(t, res.HasID)
	assert.Equal(t, "3", res.ID)
	assert.JSONEq(t, `2`, string(res.Attributes["kills"]))

	res, err = DecodeResource(strings.NewReader(`{"data":{"type":"match","id":3}}`))
	require.NoError(t, err)
	assert.Equal(t, "3", res.ID)
	assert.NotNil(t, res.Attributes)

	for _, body := range []string{``, `{}`, `{"data":[]}`, `{"data":{"id":true}}`, `not json`} {
		_, err := DecodeResource(strings.NewReader(body))
		assert.ErrorIs(t, err, ErrMalformed, body)
	}
}

func TestDecodeIdentifiers(t *testing.T) {
	ids, err := DecodeIdentifiers(strings.NewReader(`{"data":[{"type":"record","id":"1"},{"type":"record","id":2}]}`))
	require.NoError(t, err)
	assert.Equal(t, []Identifier{{Type: "record", ID: "1"}, {Type: "record", ID: "2"}}, ids)

	ids, err = DecodeIdentifiers(strings.NewReader(`{"data":null}`))
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = DecodeIdentifiers(strings.NewReader(`{"data":[{"type":"record"}]}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseID(t *testing.T) {
	id, err := ParseID("12")
	require.NoError(t, err)
	assert.Equal(t, uint(12), id)

	for _, bad := range []string{"", "0", "-1", "abc"} {
		_, err := ParseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadMaxLength(t *testing.T) {
	s := matchSchema()
	s.Fields[1].MaxLength = 4

	_, err := s.Load(attrs(t, `{"player":"titos"}`), LoadOptions{Mode: Update})
	assert.Equal(t, []string{"player"}, fieldsOf(err))

	_, err = s.Load(attrs(t, `{"player":"tïto"}`), LoadOptions{Mode: Update})
	assert.NoError(t, err, "length counts runes, not bytes")
}

func TestParseLinkFilter(t *testing.T) {
	s := matchSchema()
	s.LinkFilters = map[string]string{"owner": "owner_id"}

	col, v, err := s.ParseFilter("owner", "12")
	require.NoError(t, err)
	assert.Equal(t, "owner_id", col)
	assert.Equal(t, uint(12), v)

	_, _, err = s.ParseFilter("owner", "x")
	assert.Error(t, err)
}
