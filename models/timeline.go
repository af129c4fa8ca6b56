package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActorKind names who caused a timeline entry.
type ActorKind string

const (
	ActorResident ActorKind = "Resident"
	ActorOfficial ActorKind = "Official"
)

// TimelineEntry is one immutable step in an issue's status history.
type TimelineEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	IssueID   primitive.ObjectID `bson:"issueId" json:"issueId"`
	Status    IssueStatus        `bson:"status" json:"status"`
	UpdatedBy ActorKind          `bson:"updatedBy" json:"updatedBy"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
