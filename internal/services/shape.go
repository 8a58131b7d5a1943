package services

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/aiguard/console/internal/apierror"
)

// decodeList decodes a list endpoint that answers with either shape:
//
//	{"<key>": [...], "total": n}    wrapped (also accepted under "items")
//	[...]                           bare array
//
// Both are valid wire contracts. The result preserves order; an empty or
// null list decodes to an empty slice.
func decodeList[T any](raw json.RawMessage, key string) ([]T, error) {
	doc := gjson.ParseBytes(raw)

	var list gjson.Result
	switch {
	case doc.IsArray():
		list = doc
	case doc.IsObject() && doc.Get(key).Exists():
		list = doc.Get(key)
	case doc.IsObject() && doc.Get("items").Exists():
		list = doc.Get("items")
	case doc.Type == gjson.Null || len(raw) == 0:
		return []T{}, nil
	default:
		return nil, shapeError(key, "response is neither a list nor a wrapped list")
	}

	if list.Type == gjson.Null {
		return []T{}, nil
	}
	if !list.IsArray() {
		return nil, shapeError(key, fmt.Sprintf("%q is not a list", key))
	}

	out := make([]T, 0, len(list.Array()))
	if err := json.Unmarshal([]byte(list.Raw), &out); err != nil {
		return nil, shapeError(key, err.Error()).Wrap(err)
	}
	return out, nil
}

func shapeError(key, detail string) *apierror.Error {
	return apierror.New(apierror.TypeUnknown, fmt.Sprintf("unexpected %s response: %s", key, detail))
}
