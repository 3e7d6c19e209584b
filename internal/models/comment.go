package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment represents a comment on a photo, stored in MongoDB. Comments are
// immutable after creation except for deletion.
type Comment struct {
	ID          primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	PhotoID     primitive.ObjectID `json:"photo_id" bson:"photo_id"`
	UserID      uint               `json:"user_id" bson:"user_id"` // author
	Text        string             `json:"text" bson:"text"`
	Mentions    UserIDList         `json:"mentions" bson:"mentions"` // users resolved from @tokens (or supplied explicitly) at creation
	DateCreated time.Time          `json:"dateCreated" bson:"date_created"`
}

// CreateCommentRequest defines the request body for adding a comment.
// Mentions, when present, is a user-confirmed list of IDs and is validated
// strictly; otherwise mentions are parsed from the text best-effort.
type CreateCommentRequest struct {
	Text     string `json:"text"`
	Mentions []uint `json:"mentions,omitempty"`
}

// PopulatedComment is a comment with author and mentions expanded to
// displayable identities
type PopulatedComment struct {
	ID          primitive.ObjectID `json:"_id"`
	PhotoID     primitive.ObjectID `json:"photo_id"`
	Text        string             `json:"text"`
	User        UserCompact        `json:"user"`
	Mentions    []UserCompact      `json:"mentions"`
	DateCreated time.Time          `json:"dateCreated"`
}
