package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIssue_AddUpvote(t *testing.T) {
	issue := &Issue{}
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()

	require.True(t, issue.AddUpvote(alice))
	require.True(t, issue.AddUpvote(bob))
	assert.Equal(t, 2, issue.UpvoteCount)
	assert.Len(t, issue.Upvotes, 2)

	assert.False(t, issue.AddUpvote(alice))
	assert.Equal(t, 2, issue.UpvoteCount)
	assert.Equal(t, len(issue.Upvotes), issue.UpvoteCount)
}

func TestIssue_IsCreator(t *testing.T) {
	owner := primitive.NewObjectID()
	issue := &Issue{CreatedBy: owner}

	assert.True(t, issue.IsCreator(Actor{ID: owner, Role: RoleResident}))
	assert.False(t, issue.IsCreator(Actor{ID: primitive.NewObjectID(), Role: RoleResident}))
	assert.False(t, issue.IsCreator(Actor{Role: RoleOfficial}))
}

func TestIssue_Clone(t *testing.T) {
	addr := "Main St"
	issue := Issue{Address: &addr, Location: NewGeoPoint(77.5, 12.9)}
	issue.AddUpvote(primitive.NewObjectID())

	clone := issue.Clone()
	clone.AddUpvote(primitive.NewObjectID())
	*clone.Address = "Other St"
	clone.Location.Coordinates[0] = 0

	assert.Equal(t, 1, issue.UpvoteCount)
	assert.Equal(t, "Main St", *issue.Address)
	assert.Equal(t, 77.5, issue.Location.Longitude())
}

func TestIssueCategory_IsValid(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, c.IsValid())
	}
	assert.False(t, IssueCategory("Road").IsValid())
}

func TestUser_Password(t *testing.T) {
	u := &User{Password: "secret123"}
	require.NoError(t, u.HashPassword())
	assert.NotEqual(t, "secret123", u.Password)
	assert.True(t, u.ComparePassword("secret123"))
	assert.False(t, u.ComparePassword("nope"))
}
