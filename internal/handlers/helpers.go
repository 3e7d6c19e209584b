package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/photofeed/backend/internal/models"
	"github.com/photofeed/backend/internal/repositories"
)

// currentUserClaims returns the JWT claims stored by the auth middleware
func currentUserClaims(c echo.Context) *models.JwtCustomClaims {
	claims, ok := c.Get("user").(*models.JwtCustomClaims)
	if !ok {
		return nil
	}
	return claims
}

// currentUserID returns the authenticated user's ID, or 0 when unauthenticated
func currentUserID(c echo.Context) uint {
	claims := currentUserClaims(c)
	if claims == nil {
		return 0
	}
	return claims.UserID
}

// compactUserMap fetches the given users and indexes their compact identities
// by ID. Missing users are simply absent from the map.
func compactUserMap(userRepo repositories.UserRepository, ids []uint) (map[uint]models.UserCompact, error) {
	unique := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	users, err := userRepo.GetUsersByIDs(unique)
	if err != nil {
		return nil, err
	}

	m := make(map[uint]models.UserCompact, len(users))
	for _, u := range users {
		m[u.ID] = u.ToCompact()
	}
	return m, nil
}

// compactList maps a user ID list through the given identity map, dropping
// IDs that no longer resolve
func compactList(ids models.UserIDList, userMap map[uint]models.UserCompact) []models.UserCompact {
	out := make([]models.UserCompact, 0, len(ids))
	for _, id := range ids {
		if u, ok := userMap[id]; ok {
			out = append(out, u)
		}
	}
	return out
}
