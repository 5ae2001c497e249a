package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/ppenca/penca/models"
	"github.com/ppenca/penca/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfirmer struct {
	confirmed bool
	err       error
	calls     int
	lastPass  string
}

func (f *fakeConfirmer) ConfirmGroupPassword(_ context.Context, _ int, password string) (bool, error) {
	f.calls++
	f.lastPass = password
	return f.confirmed, f.err
}

func passwordGroup() *models.Group {
	hash := "$2a$10$irrelevant"
	return &models.Group{ID: 7, Title: "Office penca", PasswordHash: &hash, HasPassword: true}
}

func openGroup() *models.Group {
	return &models.Group{ID: 7, Title: "Office penca"}
}

func userSession() *session.Session {
	return &session.Session{UserID: 3, Email: "ana@example.com", Role: models.RoleUser, Country: "uy"}
}

func adminSession() *session.Session {
	return &session.Session{UserID: 1, Email: "root@example.com", Role: models.RoleAdmin}
}

func TestInitialStateLockedForPasswordGroup(t *testing.T) {
	g := New(passwordGroup(), userSession(), &fakeConfirmer{})
	assert.Equal(t, StateLocked, g.State())
}

func TestInitialStateUnlockedWithoutPassword(t *testing.T) {
	group := openGroup()
	group.Fee = 50 // fee alone never locks the initial view
	g := New(group, userSession(), &fakeConfirmer{})
	assert.Equal(t, StateUnlocked, g.State())
}

func TestAdminBypassesPasswordGate(t *testing.T) {
	group := passwordGroup()
	group.Fee = 20
	g := New(group, adminSession(), &fakeConfirmer{})
	assert.Equal(t, StateUnlocked, g.State())
}

func TestSubmitCorrectPasswordUnlocks(t *testing.T) {
	confirmer := &fakeConfirmer{confirmed: true}
	g := New(passwordGroup(), userSession(), confirmer)

	err := g.SubmitPassword(context.Background(), "sekret")
	require.NoError(t, err)
	assert.Equal(t, StateUnlocked, g.State())
	assert.Empty(t, g.FieldError())
	assert.Equal(t, "sekret", confirmer.lastPass)
}

func TestSubmitWrongPasswordStaysLocked(t *testing.T) {
	g := New(passwordGroup(), userSession(), &fakeConfirmer{confirmed: false})

	err := g.SubmitPassword(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, StateLocked, g.State())
	assert.Equal(t, "Password is not correct", g.FieldError())
}

func TestSubmitEmptyPasswordIsLocalValidation(t *testing.T) {
	confirmer := &fakeConfirmer{confirmed: true}
	g := New(passwordGroup(), userSession(), confirmer)

	err := g.SubmitPassword(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, StateLocked, g.State())
	assert.Equal(t, ErrPasswordRequired, g.FieldError())
	assert.Zero(t, confirmer.calls, "empty password must not reach the backend")
}

func TestConfirmationFailureFailsClosed(t *testing.T) {
	g := New(passwordGroup(), userSession(), &fakeConfirmer{err: errors.New("connection refused")})

	err := g.SubmitPassword(context.Background(), "sekret")
	require.Error(t, err)
	assert.Equal(t, StateLocked, g.State())
}

func TestStartPredictionFreeGroupNavigates(t *testing.T) {
	g := New(openGroup(), userSession(), &fakeConfirmer{})

	url, ok := g.StartPrediction()
	require.True(t, ok)
	assert.Equal(t, "/prediction?group_id=7", url)
	assert.Equal(t, StateUnlocked, g.State())
}

func TestStartPredictionFeeWithoutPaymentGoesPending(t *testing.T) {
	group := openGroup()
	group.Fee = 20
	g := New(group, userSession(), &fakeConfirmer{})

	url, ok := g.StartPrediction()
	assert.False(t, ok)
	assert.Empty(t, url)
	assert.Equal(t, StatePaymentPending, g.State())
}

func TestStartPredictionCompletedPaymentNavigates(t *testing.T) {
	group := openGroup()
	group.Fee = 20
	group.Members = []models.Membership{{
		ID:      11,
		UserID:  3,
		GroupID: 7,
		Payment: &models.Payment{ID: 5, Completed: true},
	}}
	g := New(group, userSession(), &fakeConfirmer{})

	url, ok := g.StartPrediction()
	require.True(t, ok)
	assert.Equal(t, "/prediction?group_id=7", url)
}

func TestStartPredictionIncompletePaymentShowsNotice(t *testing.T) {
	group := openGroup()
	group.Fee = 20
	group.Members = []models.Membership{{
		ID:      11,
		UserID:  3,
		GroupID: 7,
		Payment: &models.Payment{ID: 5, Completed: false},
	}}
	g := New(group, userSession(), &fakeConfirmer{})

	_, ok := g.StartPrediction()
	assert.False(t, ok)
	assert.Equal(t, StatePaymentPending, g.State())
	assert.Equal(t, "Payment is pending now", g.Notice())
}

func TestStartPredictionAdminBypassesFee(t *testing.T) {
	group := openGroup()
	group.Fee = 20
	g := New(group, adminSession(), &fakeConfirmer{})

	url, ok := g.StartPrediction()
	require.True(t, ok)
	assert.Equal(t, "/prediction?group_id=7", url)
}

func TestApplyPaymentStatusCompletedUnlocks(t *testing.T) {
	group := openGroup()
	group.Fee = 20
	g := New(group, userSession(), &fakeConfirmer{})

	_, _ = g.StartPrediction()
	require.Equal(t, StatePaymentPending, g.State())

	g.ApplyPaymentStatus(&models.Payment{ID: 5, Completed: true})
	assert.Equal(t, StateUnlocked, g.State())
	assert.Empty(t, g.Notice())
}

func TestApplyPaymentStatusPendingKeepsGateClosed(t *testing.T) {
	group := openGroup()
	group.Fee = 20
	g := New(group, userSession(), &fakeConfirmer{})

	_, _ = g.StartPrediction()
	g.ApplyPaymentStatus(&models.Payment{ID: 5, Completed: false})

	assert.Equal(t, StatePaymentPending, g.State())
	assert.Equal(t, NoticePaymentPending, g.Notice())
}

func TestMembershipFoundByEmailFallback(t *testing.T) {
	group := openGroup()
	group.Fee = 20
	group.Members = []models.Membership{{
		ID:      11,
		UserID:  99, // backend-side id differs, e-mail matches
		GroupID: 7,
		User:    &models.User{ID: 99, Email: "ana@example.com"},
		Payment: &models.Payment{ID: 5, Completed: true},
	}}
	g := New(group, userSession(), &fakeConfirmer{})

	_, ok := g.StartPrediction()
	assert.True(t, ok)
}
