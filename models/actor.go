package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Actor is the authenticated caller of a workflow operation.
type Actor struct {
	ID   primitive.ObjectID
	Role Role
}

// Is reports whether the actor is the user identified by id.
func (a Actor) Is(id primitive.ObjectID) bool {
	return !a.ID.IsZero() && a.ID == id
}

func (a Actor) IsOfficial() bool {
	return a.Role == RoleOfficial
}
