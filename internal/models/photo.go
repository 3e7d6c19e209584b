package models

import (
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Photo represents an uploaded photo stored in MongoDB
type Photo struct {
	ID           primitive.ObjectID   `json:"_id,omitempty" bson:"_id,omitempty"`
	UserID       uint                 `json:"user_id" bson:"user_id"` // owner
	File         string               `json:"file" bson:"file"`
	Thumbnail    string               `json:"thumbnail,omitempty" bson:"thumbnail,omitempty"`
	Caption      string               `json:"caption" bson:"caption"`
	DateUploaded time.Time            `json:"dateUploaded" bson:"date_uploaded"`
	Comments     []primitive.ObjectID `json:"comments" bson:"comments"`
	Likes        UserIDList           `json:"likes" bson:"likes"`
	SharedWith   UserIDList           `json:"sharedWith" bson:"shared_with"` // empty = public
	Mentions     UserIDList           `json:"mentions" bson:"mentions"`      // union of mention sets of all comments, never retracted
	Tags         []Tag                `json:"tags,omitempty" bson:"tags,omitempty"`
}

// Tag marks a user inside a rectangular region of a photo
type Tag struct {
	UserID uint `json:"user_id" bson:"user_id"`
	Rect   Rect `json:"rect" bson:"rect"`
}

// Rect is a tag's bounding box in photo coordinates
type Rect struct {
	X      float64 `json:"x" bson:"x"`
	Y      float64 `json:"y" bson:"y"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// AddTagRequest defines the request body for tagging a user in a photo
type AddTagRequest struct {
	UserID uint `json:"user_id" validate:"required"`
	Rect   Rect `json:"rect"`
}

// UserIDList is a set of user IDs stored as a BSON array. Legacy documents
// hold mixed element shapes (numbers, numeric strings, embedded user docs);
// decoding normalizes them into plain IDs so handlers only ever see a typed
// set. Unrecognizable elements are skipped, duplicates collapse.
type UserIDList []uint

// Contains reports whether id is in the list
func (l UserIDList) Contains(id uint) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler
func (l *UserIDList) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bson.TypeNull || t == bson.TypeUndefined {
		*l = nil
		return nil
	}
	raw := bson.RawValue{Type: t, Value: data}
	arr, ok := raw.ArrayOK()
	if !ok {
		return fmt.Errorf("cannot decode %v into a user ID list", t)
	}
	values, err := arr.Values()
	if err != nil {
		return err
	}
	out := make(UserIDList, 0, len(values))
	for _, v := range values {
		id, ok := coerceUserID(v)
		if !ok {
			continue
		}
		if !out.Contains(id) {
			out = append(out, id)
		}
	}
	*l = out
	return nil
}

// coerceUserID extracts a user ID from any of the legacy element shapes
func coerceUserID(v bson.RawValue) (uint, bool) {
	if n, ok := v.AsInt64OK(); ok && n >= 0 {
		return uint(n), true
	}
	if s, ok := v.StringValueOK(); ok {
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			return uint(n), true
		}
		return 0, false
	}
	if doc, ok := v.DocumentOK(); ok {
		for _, key := range []string{"id", "_id", "user_id"} {
			if field, err := doc.LookupErr(key); err == nil {
				return coerceUserID(field)
			}
		}
	}
	return 0, false
}
