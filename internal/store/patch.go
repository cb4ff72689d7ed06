package store

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// SetFields renders a patch struct (pointer fields tagged omitempty) as a
// $set document with dotted paths, so nested blocks merge instead of
// replacing what is stored.
func SetFields(patch any) (bson.M, error) {
	raw, err := bson.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	out := bson.M{}
	flatten("", doc, out)
	return out, nil
}

func flatten(prefix string, doc bson.D, out bson.M) {
	for _, e := range doc {
		key := e.Key
		if prefix != "" {
			key = prefix + "." + key
		}
		switch v := e.Value.(type) {
		case bson.D:
			flatten(key, v, out)
		case bson.M:
			d := make(bson.D, 0, len(v))
			for k, val := range v {
				d = append(d, bson.E{Key: k, Value: val})
			}
			flatten(key, d, out)
		default:
			out[key] = v
		}
	}
}
