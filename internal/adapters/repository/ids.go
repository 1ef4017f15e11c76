package repository

import (
	"fmt"

	model "github.com/okian/brewrank/internal/domain/model"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Documents written by older clients hold ids either as ObjectIDs or as
// their hex strings. Everything above this file sees plain strings.

// storedForms returns every representation id may be stored under.
func storedForms(id string) []any {
	forms := []any{id}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		forms = append(forms, oid)
	}
	return forms
}

// storedFormsOf flattens storedForms over refs.
func storedFormsOf(refs []model.BeerRef) []any {
	out := make([]any, 0, 2*len(refs))
	for _, r := range refs {
		out = append(out, storedForms(string(r))...)
	}
	return out
}

// canonicalID turns a decoded id value into its canonical string.
func canonicalID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	default:
		return fmt.Sprint(id)
	}
}
