// Package storetest helps in-memory fakes mimic the store's update
// semantics.
package storetest

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ApplySet applies a $set document with dotted paths to doc in place, the
// way the server would. doc must be a pointer to a bson-tagged struct.
func ApplySet(doc interface{}, set bson.M) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}

	for path, value := range set {
		parts := strings.Split(path, ".")
		cur := m
		for _, p := range parts[:len(parts)-1] {
			cur = child(cur, p)
		}
		cur[parts[len(parts)-1]] = value
	}

	raw, err = bson.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode updated document: %w", err)
	}
	return bson.Unmarshal(raw, doc)
}

func child(m bson.M, key string) bson.M {
	switch v := m[key].(type) {
	case bson.M:
		return v
	case primitive.D:
		c := v.Map()
		m[key] = c
		return c
	default:
		c := bson.M{}
		m[key] = c
		return c
	}
}
