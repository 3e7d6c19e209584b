// Package mentions extracts @username tokens from comment text and resolves
// them to user identities.
package mentions

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/photofeed/backend/internal/models"
)

// ErrMentionNotFound is returned by ResolveExplicit when a supplied user ID
// does not exist. The text-parsing path never returns it; unmatched tokens
// there are dropped silently.
var ErrMentionNotFound = errors.New("mentioned user not found")

// A mention is "@" followed by one or more word characters, terminated by
// any non-word character or end of string.
var mentionPattern = regexp.MustCompile(`@(\w+)`)

// Parse returns the candidate usernames mentioned in text, left to right,
// with duplicates collapsed to the first occurrence.
func Parse(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool, len(matches))
	candidates := make([]string, 0, len(matches))
	for _, m := range matches {
		username := m[1]
		if seen[username] {
			continue
		}
		seen[username] = true
		candidates = append(candidates, username)
	}
	return candidates
}

// UserLookup is the slice of the user repository the resolver needs
type UserLookup interface {
	GetUserByID(id uint) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
}

// Resolver maps mention candidates to user records
type Resolver struct {
	users UserLookup
}

// NewResolver creates a Resolver backed by the given user lookup
func NewResolver(users UserLookup) *Resolver {
	return &Resolver{users: users}
}

// ResolveText resolves parsed username candidates best-effort: exact,
// case-sensitive lookups, with misses dropped silently. Free-text mentions
// are a guess, so an unknown token is not an error.
func (r *Resolver) ResolveText(candidates []string) ([]models.User, error) {
	resolved := make([]models.User, 0, len(candidates))
	for _, username := range candidates {
		user, err := r.users.GetUserByUsername(username)
		if err != nil {
			continue
		}
		resolved = append(resolved, *user)
	}
	return resolved, nil
}

// ResolveExplicit resolves a user-confirmed list of IDs. Unlike the text
// path, every ID must exist; the first miss fails the whole operation.
func (r *Resolver) ResolveExplicit(ids []uint) ([]models.User, error) {
	resolved := make([]models.User, 0, len(ids))
	for _, id := range ids {
		user, err := r.users.GetUserByID(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %d", ErrMentionNotFound, id)
		}
		resolved = append(resolved, *user)
	}
	return resolved, nil
}
