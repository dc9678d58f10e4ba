package admin

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"spellbreak/internal/db/models"
	"spellbreak/internal/testutil"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func setup(t *testing.T, pageSize int) (*mux.Router, *gorm.DB) {
	t.Helper()
	gdb := testutil.SetupSQLite(t)

	h, err := New(gdb, pageSize)
	require.NoError(t, err)

	router := mux.NewRouter()
	h.Register(router, "/admin")
	return router, gdb
}

func seedUsers(t *testing.T, gdb *gorm.DB, names ...string) {
	t.Helper()
	for i, name := range names {
		require.NoError(t, gdb.Create(&models.User{DiscordID: int64(1000 + i), Username: name}).Error)
	}
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func post(router http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	router, gdb := setup(t, 50)
	seedUsers(t, gdb, "tito", "mara")

	rec := get(router, "/admin/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	for _, table := range Tables {
		assert.Contains(t, body, `href="/admin/`+table.Name+`"`)
	}
	assert.Contains(t, body, "<td>2</td>")
}

func TestListSearchAndPaging(t *testing.T) {
	router, gdb := setup(t, 2)
	seedUsers(t, gdb, "Alpha", "alphonse", "bravo", "charlie", "ALPINE")

	rec := get(router, "/admin/users")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "5 rows, page 1 of 3")
	assert.Contains(t, rec.Body.String(), "<td>Alpha</td>")
	assert.NotContains(t, rec.Body.String(), "<td>bravo</td>")

	rec = get(router, "/admin/users?page=2")
	assert.Contains(t, rec.Body.String(), "<td>bravo</td>")
	assert.Contains(t, rec.Body.String(), "previous")

	rec = get(router, "/admin/users?q=alp")
	assert.Contains(t, rec.Body.String(), "3 rows, page 1 of 2", "search ignores case")
	assert.NotContains(t, rec.Body.String(), "<td>charlie</td>")

	rec = get(router, "/admin/users?page=abc")
	assert.Contains(t, rec.Body.String(), "page 1 of 3")
}

func TestListUnknownTable(t *testing.T) {
	router, _ := setup(t, 50)
	assert.Equal(t, http.StatusNotFound, get(router, "/admin/secrets").Code)
	assert.Equal(t, http.StatusNotFound, get(router, "/admin/secrets/export").Code)
}

func TestListRecordsShowsNulls(t *testing.T) {
	router, gdb := setup(t, 50)
	require.NoError(t, gdb.Create(&models.Record{
		Date:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		DiscordID: 42,
		Username:  "tito",
		Place:     1,
		Kills:     7,
	}).Error)

	rec := get(router, "/admin/records")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<td>tito</td>")
	assert.Contains(t, rec.Body.String(), "<td></td>")
}

func TestExportCSV(t *testing.T) {
	router, gdb := setup(t, 50)
	seedUsers(t, gdb, "tito", "mara", "timo")

	rec := get(router, "/admin/users/export?q=ti")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="users.csv"`)

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"id", "discord_id", "username"},
		{"1", "1000", "tito"},
		{"3", "1002", "timo"},
	}, rows)
}

func TestExportXLSX(t *testing.T) {
	router, gdb := setup(t, 1)
	names := make([]string, 5)
	for i := range names {
		names[i] = fmt.Sprintf("%s-%d", gofakeit.Username(), i)
	}
	seedUsers(t, gdb, names...)

	rec := get(router, "/admin/users/export?format=xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Users")
	require.NoError(t, err)
	require.Len(t, rows, len(names)+1, "export is not paged")
	assert.Equal(t, []string{"id", "discord_id", "username"}, rows[0])
	assert.Equal(t, names[4], rows[5][2])
}

func TestExportUnsupportedFormat(t *testing.T) {
	router, _ := setup(t, 50)
	assert.Equal(t, http.StatusBadRequest, get(router, "/admin/users/export?format=pdf").Code)
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	router, gdb := setup(t, 50)
	seedUsers(t, gdb, "a_b", "axb", "50%off", "500ff")

	rec := get(router, "/admin/users?q=a_b")
	assert.Contains(t, rec.Body.String(), "1 rows")
	assert.Contains(t, rec.Body.String(), "<td>a_b</td>")
	assert.NotContains(t, rec.Body.String(), "<td>axb</td>")

	rec = get(router, "/admin/users?q="+url.QueryEscape("0%"))
	assert.Contains(t, rec.Body.String(), "1 rows")
	assert.Contains(t, rec.Body.String(), "<td>50%off</td>")
}

func TestCreateRow(t *testing.T) {
	router, gdb := setup(t, 50)

	rec := get(router, "/admin/records/new")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="tourny_name"`)
	assert.NotContains(t, rec.Body.String(), `name="id"`)

	rec = post(router, "/admin/records", url.Values{
		"date":        {"2024-05-01T12:00"},
		"discord_id":  {"42"},
		"username":    {"tito"},
		"tourny_name": {""},
		"place":       {"1"},
		"kills":       {"7"},
		"assists":     {"2"},
		"damage":      {"900"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/admin/records", rec.Header().Get("Location"))

	var got models.Record
	require.NoError(t, gdb.First(&got).Error)
	assert.Equal(t, "tito", got.Username)
	assert.Equal(t, 7, got.Kills)
	assert.Nil(t, got.TournyName)
	assert.Nil(t, got.Score)
	assert.True(t, got.Date.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
}

func TestCreateRowInvalid(t *testing.T) {
	router, gdb := setup(t, 50)
	seedUsers(t, gdb, "tito")

	rec := post(router, "/admin/users", url.Values{"discord_id": {"abc"}, "username": {"mara"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "discord_id: not a valid integer")

	rec = post(router, "/admin/users", url.Values{"username": {"mara"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "discord_id: missing value")

	rec = post(router, "/admin/users", url.Values{"discord_id": {"5"}, "username": {"tito"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	var n int64
	require.NoError(t, gdb.Model(&models.User{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestUpdateRow(t *testing.T) {
	router, gdb := setup(t, 50)
	seedUsers(t, gdb, "tito")

	rec := get(router, "/admin/users/1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="tito"`)

	rec = post(router, "/admin/users/1", url.Values{"username": {"mara"}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	var got models.User
	require.NoError(t, gdb.First(&got, 1).Error)
	assert.Equal(t, "mara", got.Username)
	assert.EqualValues(t, 1000, got.DiscordID, "columns left out of the form are kept")

	assert.Equal(t, http.StatusNotFound, post(router, "/admin/users/99", url.Values{"username": {"x"}}).Code)
	assert.Equal(t, http.StatusNotFound, get(router, "/admin/users/99").Code)
}

func TestUpdateRowClearsNullable(t *testing.T) {
	router, gdb := setup(t, 50)
	name := "Spring Cup"
	require.NoError(t, gdb.Create(&models.Tourn{Name: &name}).Error)

	rec := post(router, "/admin/tourns/1", url.Values{"name": {""}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	var got models.Tourn
	require.NoError(t, gdb.First(&got, 1).Error)
	assert.Nil(t, got.Name)
}

func TestDeleteRow(t *testing.T) {
	router, gdb := setup(t, 50)
	seedUsers(t, gdb, "tito", "mara")

	rec := post(router, "/admin/users/1/delete", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	var users []models.User
	require.NoError(t, gdb.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "mara", users[0].Username)

	assert.Equal(t, http.StatusNotFound, post(router, "/admin/users/1/delete", nil).Code)
}
