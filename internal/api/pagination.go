package api

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"spellbreak/internal/db"
	"spellbreak/internal/schema"
)

type page struct {
	number int
	size   int
}

func (p page) offset() int {
	if p.size == 0 {
		return 0
	}
	return (p.number - 1) * p.size
}

// parsePage reads page[number] and page[size]. A size of 0 turns paging off;
// sizes above max are clamped.
func parsePage(q url.Values, opts Options) (page, error) {
	p := page{number: 1, size: opts.PageSize}

	if raw := q.Get("page[number]"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, errParameter("page[number]", "must be a positive integer")
		}
		p.number = n
	}
	if raw := q.Get("page[size]"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return p, errParameter("page[size]", "must be a non-negative integer")
		}
		p.size = min(n, opts.MaxPageSize)
	}
	if p.size > 0 && p.number-1 > math.MaxInt/p.size {
		return p, errParameter("page[number]", "is out of range")
	}
	return p, nil
}

func errParameter(name, detail string) *Error {
	e := NewError(http.StatusBadRequest, "invalid_parameter", "Invalid query parameter",
		fmt.Sprintf("%s %s", name, detail))
	e.Meta = map[string]interface{}{"parameter": name}
	return e
}

// parseFilters turns every filter[<name>] parameter into a storage filter.
func parseFilters[T any](q url.Values, s *schema.Schema[T]) ([]db.Filter, error) {
	var names []string
	for key := range q {
		if strings.HasPrefix(key, "filter[") && strings.HasSuffix(key, "]") {
			names = append(names, key)
		}
	}
	sort.Strings(names)

	filters := make([]db.Filter, 0, len(names))
	for _, key := range names {
		name := strings.TrimSuffix(strings.TrimPrefix(key, "filter["), "]")
		column, value, err := s.ParseFilter(name, q.Get(key))
		if err != nil {
			return nil, err
		}
		filters = append(filters, db.Filter{Column: column, Value: value})
	}
	return filters, nil
}

func pageLinks(u *url.URL, p page, total int64) *schema.Links {
	links := &schema.Links{Self: u.RequestURI()}
	if p.size == 0 {
		return links
	}

	last := int((total + int64(p.size) - 1) / int64(p.size))
	if last < 1 {
		last = 1
	}
	at := func(n int) string {
		q := u.Query()
		q.Set("page[number]", strconv.Itoa(n))
		q.Set("page[size]", strconv.Itoa(p.size))
		return u.Path + "?" + q.Encode()
	}

	links.First = at(1)
	links.Last = at(last)
	if p.number > 1 {
		links.Prev = at(min(p.number-1, last))
	}
	if p.number < last {
		links.Next = at(p.number + 1)
	}
	return links
}
