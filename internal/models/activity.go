package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityKind enumerates the recordable user actions
type ActivityKind string

const (
	ActivityPhotoUpload    ActivityKind = "PHOTO_UPLOAD"
	ActivityCommentAdded   ActivityKind = "COMMENT_ADDED"
	ActivityUserRegistered ActivityKind = "USER_REGISTERED"
	ActivityUserLogin      ActivityKind = "USER_LOGIN"
	ActivityUserLogout     ActivityKind = "USER_LOGOUT"
)

// Activity is an append-only record of one user action, stored in MongoDB.
// Never mutated after creation; deleted only when its referenced photo,
// comment, or user is deleted.
type Activity struct {
	ID        primitive.ObjectID  `json:"_id,omitempty" bson:"_id,omitempty"`
	UserID    uint                `json:"user_id" bson:"user_id"`
	Kind      ActivityKind        `json:"type" bson:"type"`
	PhotoID   *primitive.ObjectID `json:"photo_id,omitempty" bson:"photo_id,omitempty"`
	CommentID *primitive.ObjectID `json:"comment_id,omitempty" bson:"comment_id,omitempty"`
	Date      time.Time           `json:"date" bson:"date"`
}

// PopulatedActivity is an activity expanded for the feed: author identity
// plus the referenced photo and comment payloads when present. For comment
// activities the comment's photo is included transitively.
type PopulatedActivity struct {
	ID      primitive.ObjectID `json:"_id"`
	Kind    ActivityKind       `json:"type"`
	User    UserCompact        `json:"user"`
	Photo   *Photo             `json:"photo,omitempty"`
	Comment *Comment           `json:"comment,omitempty"`
	Date    time.Time          `json:"date"`
}
