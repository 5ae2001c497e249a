package session

import (
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/ppenca/penca/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromClaims(t *testing.T) {
	claims := jwt.MapClaims{
		"user_id":    float64(7),
		"role":       "USER",
		"first_name": "Diego",
		"last_name":  "Forlan",
		"email":      "diego@example.com",
		"country":    "uy",
	}

	sess, err := FromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, 7, sess.UserID)
	assert.Equal(t, models.RoleUser, sess.Role)
	assert.Equal(t, "Diego", sess.FirstName)
	assert.Equal(t, "uy", sess.Country)
}

func TestFromClaimsRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{"missing user_id", jwt.MapClaims{"role": "USER"}},
		{"zero user_id", jwt.MapClaims{"user_id": float64(0), "role": "USER"}},
		{"user_id wrong type", jwt.MapClaims{"user_id": "7", "role": "USER"}},
		{"missing role", jwt.MapClaims{"user_id": float64(7)}},
		{"unknown role", jwt.MapClaims{"user_id": float64(7), "role": "OWNER"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromClaims(tc.claims)
			assert.ErrorIs(t, err, ErrInvalidClaims)
		})
	}
}

func TestCapabilities(t *testing.T) {
	admin := &Session{UserID: 1, Role: models.RoleAdmin, Country: "uy"}
	assert.True(t, admin.CanBypassGates())
	assert.True(t, admin.CanManageGroups())
	assert.False(t, admin.CanPredict())
	assert.Equal(t, "all", admin.GroupsFilter())

	user := &Session{UserID: 2, Role: models.RoleUser, Country: "uy"}
	assert.False(t, user.CanBypassGates())
	assert.False(t, user.CanManageGroups())
	assert.True(t, user.CanPredict())
	assert.Equal(t, "uy", user.GroupsFilter())
}

func TestViewerRoundTrip(t *testing.T) {
	user := &models.User{ID: 7, FirstName: "Diego", Email: "diego@example.com", Role: models.RoleUser, Country: "uy"}
	sess := FromUser(user)
	viewer := sess.Viewer()
	assert.Equal(t, user.ID, viewer.ID)
	assert.Equal(t, user.Email, viewer.Email)
	assert.Equal(t, user.Role, viewer.Role)
}
