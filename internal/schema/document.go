package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

const Version = "1.0"

type Document struct {
	Data    any            `json:"data,omitempty"`
	Links   *Links         `json:"links,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
	JSONAPI *JSONAPI       `json:"jsonapi,omitempty"`
}

type JSONAPI struct {
	Version string `json:"version"`
}

type Resource struct {
	Type          string                        `json:"type"`
	ID            string                        `json:"id"`
	Attributes    map[string]any                `json:"attributes,omitempty"`
	Relationships map[string]RelationshipObject `json:"relationships,omitempty"`
	Links         *Links                        `json:"links,omitempty"`
}

// RelationshipObject is the relationship member of a resource. Data is only
// set when the linkage is included.
type RelationshipObject struct {
	Links *Links       `json:"links,omitempty"`
	Data  []Identifier `json:"data,omitempty"`
}

type Identifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type Links struct {
	Self    string `json:"self,omitempty"`
	Related string `json:"related,omitempty"`
	First   string `json:"first,omitempty"`
	Last    string `json:"last,omitempty"`
	Prev    string `json:"prev,omitempty"`
	Next    string `json:"next,omitempty"`
}

// Incoming is a resource object as sent by a client.
type Incoming struct {
	Type       string
	ID         string
	HasID      bool
	Attributes map[string]json.RawMessage
}

type incoming struct {
	Type       *string                    `json:"type"`
	ID         json.RawMessage            `json:"id"`
	Attributes map[string]json.RawMessage `json:"attributes"`
}

// DecodeResource reads a single-resource document from r.
func DecodeResource(r io.Reader) (*Incoming, error) {
	data, err := decodeData(r)
	if err != nil {
		return nil, err
	}

	var in incoming
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: data must be a resource object", ErrMalformed)
	}

	res := &Incoming{Attributes: in.Attributes}
	if in.Type != nil {
		res.Type = *in.Type
	}
	if len(in.ID) > 0 && !bytes.Equal(in.ID, []byte("null")) {
		id, err := decodeID(in.ID)
		if err != nil {
			return nil, err
		}
		res.ID, res.HasID = id, true
	}
	if res.Attributes == nil {
		res.Attributes = map[string]json.RawMessage{}
	}
	return res, nil
}

// DecodeIdentifiers reads a to-many linkage document from r. A null or empty
// data member yields an empty slice.
func DecodeIdentifiers(r io.Reader) ([]Identifier, error) {
	data, err := decodeData(r)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return []Identifier{}, nil
	}

	var raw []struct {
		Type string          `json:"type"`
		ID   json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: data must be an array of resource identifiers", ErrMalformed)
	}

	ids := make([]Identifier, 0, len(raw))
	for _, item := range raw {
		if item.Type == "" || len(item.ID) == 0 {
			return nil, fmt.Errorf("%w: resource identifiers need type and id", ErrMalformed)
		}
		id, err := decodeID(item.ID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, Identifier{Type: item.Type, ID: id})
	}
	return ids, nil
}

func decodeData(r io.Reader) (json.RawMessage, error) {
	var doc struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(doc.Data) == 0 {
		return nil, fmt.Errorf("%w: missing data member", ErrMalformed)
	}
	return doc.Data, nil
}

// decodeID accepts ids sent as strings, as the format requires, or as bare
// integers.
func decodeID(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if _, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
			return n.String(), nil
		}
	}
	return "", fmt.Errorf("%w: id must be a string", ErrMalformed)
}

// ParseID converts a JSON:API id into a storage id.
func ParseID(id string) (uint, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid id %q", id)
	}
	return uint(n), nil
}

func FormatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
