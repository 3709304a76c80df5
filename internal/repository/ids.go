package repository

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewIdentifier returns a fresh identifier in display form. All gateways use
// ObjectID hex strings so identifiers look the same whichever store is
// configured.
func NewIdentifier() string {
	return primitive.NewObjectID().Hex()
}

// ParseIdentifier converts a display identifier into an ObjectID.
func ParseIdentifier(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	return oid, nil
}

// CanonicalIdentifier validates id and returns its canonical lowercase form.
func CanonicalIdentifier(id string) (string, error) {
	oid, err := ParseIdentifier(id)
	if err != nil {
		return "", err
	}
	return oid.Hex(), nil
}
