package menu

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
)

const (
	fieldID        = "id"
	fieldAvailable = "available"
)

var (
	errBadID        = errors.New("dish id must be a string or a number")
	errBadAvailable = errors.New("dish available must be a boolean")
)

// Dish is a menu entry. Fields holds every caller-supplied attribute other
// than id and available, kept as decoded (numbers as json.Number).
type Dish struct {
	ID        string
	Available bool
	Fields    map[string]any
}

func (d Dish) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+2)
	maps.Copy(out, d.Fields)
	out[fieldID] = d.ID
	out[fieldAvailable] = d.Available
	return json.Marshal(out)
}

func (d *Dish) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("dish must be a json object")
	}

	id, err := parseID(raw[fieldID])
	if err != nil {
		return err
	}

	var available bool
	switch v := raw[fieldAvailable].(type) {
	case nil:
	case bool:
		available = v
	default:
		return errBadAvailable
	}

	delete(raw, fieldID)
	delete(raw, fieldAvailable)

	*d = Dish{ID: id, Available: available, Fields: raw}
	return nil
}

// parseID keys numeric ids by their literal text, so 1 and "1" name the same dish.
func parseID(v any) (string, error) {
	switch id := v.(type) {
	case nil:
		return "", nil
	case string:
		return id, nil
	case json.Number:
		return id.String(), nil
	default:
		return "", fmt.Errorf("%w, got %T", errBadID, v)
	}
}

// Clone returns a deep copy; nested objects and arrays are not shared.
func (d Dish) Clone() Dish {
	c := Dish{ID: d.ID, Available: d.Available}
	if d.Fields != nil {
		c.Fields = make(map[string]any, len(d.Fields))
		for k, v := range d.Fields {
			c.Fields[k] = cloneValue(v)
		}
	}
	return c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}
