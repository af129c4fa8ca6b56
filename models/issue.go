package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueCategory enum
type IssueCategory string

const (
	Road        IssueCategory = "ROAD"
	Water       IssueCategory = "WATER"
	Electricity IssueCategory = "ELECTRICITY"
	Sanitation  IssueCategory = "SANITATION"
	Other       IssueCategory = "OTHER"
)

// Categories lists every category in display order.
var Categories = []IssueCategory{Road, Water, Electricity, Sanitation, Other}

func (c IssueCategory) IsValid() bool {
	switch c {
	case Road, Water, Electricity, Sanitation, Other:
		return true
	}
	return false
}

// GeoPoint is a GeoJSON point. Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string     `bson:"type" json:"type"`
	Coordinates [2]float64 `bson:"coordinates" json:"coordinates"`
}

func NewGeoPoint(longitude, latitude float64) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: [2]float64{longitude, latitude}}
}

func (p GeoPoint) Longitude() float64 { return p.Coordinates[0] }
func (p GeoPoint) Latitude() float64  { return p.Coordinates[1] }

// Issue represents a civic issue reported by a resident
type Issue struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description" json:"description"`
	Category    IssueCategory        `bson:"category" json:"category"`
	Location    *GeoPoint            `bson:"location,omitempty" json:"location,omitempty"`
	Address     *string              `bson:"address,omitempty" json:"address,omitempty"`
	ImageURL    *string              `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Status      IssueStatus          `bson:"status" json:"status"`
	CreatedBy   primitive.ObjectID   `bson:"createdBy" json:"createdBy"`
	Upvotes     []primitive.ObjectID `bson:"upvotes" json:"upvotes"`
	UpvoteCount int                  `bson:"upvoteCount" json:"upvoteCount"`
	Version     int64                `bson:"version" json:"-"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// HasUpvoted reports whether userID is already in the upvote set.
func (i *Issue) HasUpvoted(userID primitive.ObjectID) bool {
	for _, id := range i.Upvotes {
		if id == userID {
			return true
		}
	}
	return false
}

// AddUpvote adds userID to the upvote set and recomputes the count.
// It returns false, leaving the issue untouched, when userID already voted.
func (i *Issue) AddUpvote(userID primitive.ObjectID) bool {
	if i.HasUpvoted(userID) {
		return false
	}
	i.Upvotes = append(i.Upvotes, userID)
	i.UpvoteCount = len(i.Upvotes)
	return true
}

// IsCreator reports whether actor reported the issue.
func (i *Issue) IsCreator(actor Actor) bool {
	return actor.Is(i.CreatedBy)
}

// Clone returns a copy that shares no mutable state with i.
func (i Issue) Clone() Issue {
	out := i
	if i.Location != nil {
		loc := *i.Location
		out.Location = &loc
	}
	if i.Address != nil {
		addr := *i.Address
		out.Address = &addr
	}
	if i.ImageURL != nil {
		url := *i.ImageURL
		out.ImageURL = &url
	}
	out.Upvotes = append([]primitive.ObjectID{}, i.Upvotes...)
	return out
}
