// Package session exposes the authenticated viewer as an explicit,
// read-only context object. It is populated once at view entry from the
// identity token and passed down; components never reach for ambient
// globals or compare role strings directly.
package session

import (
	"errors"

	"github.com/golang-jwt/jwt/v4"
	"github.com/ppenca/penca/models"
)

var ErrInvalidClaims = errors.New("session: token claims are missing or malformed")

// Session описывает текущего зрителя. Заполняется при входе в
// представление и дальше только читается.
type Session struct {
	UserID    int
	FirstName string
	LastName  string
	Email     string
	Role      models.UserRole
	Country   string
}

// FromClaims собирает сессию из JWT claims, выданных /api/auth/login.
func FromClaims(claims jwt.MapClaims) (*Session, error) {
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok || userIDFloat <= 0 {
		return nil, ErrInvalidClaims
	}

	roleStr, ok := claims["role"].(string)
	if !ok {
		return nil, ErrInvalidClaims
	}
	role := models.UserRole(roleStr)
	if role != models.RoleAdmin && role != models.RoleUser {
		return nil, ErrInvalidClaims
	}

	s := &Session{
		UserID: int(userIDFloat),
		Role:   role,
	}
	s.FirstName, _ = claims["first_name"].(string)
	s.LastName, _ = claims["last_name"].(string)
	s.Email, _ = claims["email"].(string)
	s.Country, _ = claims["country"].(string)
	return s, nil
}

// FromUser строит сессию из загруженного пользователя.
func FromUser(user *models.User) *Session {
	return &Session{
		UserID:    user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      user.Role,
		Country:   user.Country,
	}
}

// CanBypassGates reports whether the viewer skips password and fee gates
// unconditionally. Evaluated once per view instead of scattering role
// comparisons across components.
func (s *Session) CanBypassGates() bool {
	return s.Role == models.RoleAdmin
}

// CanManageGroups reports whether the viewer may finish groups, adjust
// member scores and upload group logos.
func (s *Session) CanManageGroups() bool {
	return s.Role == models.RoleAdmin
}

// CanPredict: администраторы не участвуют в прогнозах, они ведут группы.
func (s *Session) CanPredict() bool {
	return s.Role != models.RoleAdmin
}

// GroupsFilter возвращает значение query-параметра user для
// GET /api/groups: "all" для администратора, иначе страна зрителя.
func (s *Session) GroupsFilter() string {
	if s.Role == models.RoleAdmin {
		return "all"
	}
	return s.Country
}

// Viewer возвращает модель пользователя с полями сессии.
func (s *Session) Viewer() *models.User {
	return &models.User{
		ID:        s.UserID,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Email:     s.Email,
		Role:      s.Role,
		Country:   s.Country,
	}
}
