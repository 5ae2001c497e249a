package services

import (
	"context"
	"strings"
	"testing"

	"github.com/ppenca/penca/live"
	"github.com/ppenca/penca/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func groupFixture(t *testing.T) (GroupService, *fakeGroupRepo, *fakeMembershipRepo, *fakePaymentRepo, *fakeUploader) {
	t.Helper()
	groupRepo := newFakeGroupRepo()
	membershipRepo := newFakeMembershipRepo()
	paymentRepo := newFakePaymentRepo()
	uploader := newFakeUploader()
	service := NewGroupService(groupRepo, membershipRepo, paymentRepo, uploader, live.NewHub(), "https://pay.test/checkout", testLogger())
	return service, groupRepo, membershipRepo, paymentRepo, uploader
}

func TestCreateGroupHashesPassword(t *testing.T) {
	service, groupRepo, _, _, _ := groupFixture(t)

	password := "qwerty123"
	group, err := service.Create(context.Background(), CreateGroupInput{
		Title:     "Oficina",
		Password:  &password,
		Fee:       100,
		CreatorID: 1,
	})
	require.NoError(t, err)

	stored, err := groupRepo.GetByID(context.Background(), group.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PasswordHash)
	assert.NotEqual(t, password, *stored.PasswordHash, "password must never be stored in plaintext")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*stored.PasswordHash), []byte(password)))
}

func TestCreateGroupValidation(t *testing.T) {
	service, _, _, _, _ := groupFixture(t)

	_, err := service.Create(context.Background(), CreateGroupInput{Title: "", CreatorID: 1})
	assert.ErrorIs(t, err, ErrGroupTitleRequired)

	_, err = service.Create(context.Background(), CreateGroupInput{Title: "Oficina", Fee: -1, CreatorID: 1})
	assert.ErrorIs(t, err, ErrGroupFeeNegative)
}

func TestCreateGroupTitleConflict(t *testing.T) {
	service, _, _, _, _ := groupFixture(t)

	_, err := service.Create(context.Background(), CreateGroupInput{Title: "Oficina", CreatorID: 1})
	require.NoError(t, err)
	_, err = service.Create(context.Background(), CreateGroupInput{Title: "Oficina", CreatorID: 2})
	assert.ErrorIs(t, err, ErrGroupTitleConflict)
}

func TestConfirmPassword(t *testing.T) {
	service, _, _, _, _ := groupFixture(t)

	password := "sekret99"
	group, err := service.Create(context.Background(), CreateGroupInput{Title: "Oficina", Password: &password, CreatorID: 1})
	require.NoError(t, err)

	confirmed, err := service.ConfirmPassword(context.Background(), group.ID, "sekret99")
	require.NoError(t, err)
	assert.True(t, confirmed)

	// Неверный пароль — отказ, а не ошибка.
	confirmed, err = service.ConfirmPassword(context.Background(), group.ID, "wrong")
	require.NoError(t, err)
	assert.False(t, confirmed)
}

func TestConfirmPasswordOpenGroup(t *testing.T) {
	service, _, _, _, _ := groupFixture(t)

	group, err := service.Create(context.Background(), CreateGroupInput{Title: "Oficina", CreatorID: 1})
	require.NoError(t, err)

	confirmed, err := service.ConfirmPassword(context.Background(), group.ID, "")
	require.NoError(t, err)
	assert.True(t, confirmed)
}

func TestConfirmPasswordUnknownGroup(t *testing.T) {
	service, _, _, _, _ := groupFixture(t)

	_, err := service.ConfirmPassword(context.Background(), 999, "x")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestInitiatePaymentCreatesMembershipAndRedirect(t *testing.T) {
	service, _, membershipRepo, _, _ := groupFixture(t)

	group, err := service.Create(context.Background(), CreateGroupInput{Title: "Oficina", Fee: 100, CreatorID: 1})
	require.NoError(t, err)

	payment, redirectURL, err := service.InitiatePayment(context.Background(), group.ID, 7)
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, 100.0, payment.Amount)
	assert.Len(t, payment.ProviderRef, 24)
	assert.True(t, strings.HasPrefix(redirectURL, "https://pay.test/checkout?amount=100.00&ref="))

	_, err = membershipRepo.GetByUserAndGroup(context.Background(), 7, group.ID)
	require.NoError(t, err)
}

func TestInitiatePaymentReusesPendingPayment(t *testing.T) {
	service, _, membershipRepo, _, _ := groupFixture(t)

	group, err := service.Create(context.Background(), CreateGroupInput{Title: "Oficina", Fee: 100, CreatorID: 1})
	require.NoError(t, err)

	first, _, err := service.InitiatePayment(context.Background(), group.ID, 7)
	require.NoError(t, err)

	member, err := membershipRepo.GetByUserAndGroup(context.Background(), 7, group.ID)
	require.NoError(t, err)
	member.Payment = first

	second, _, err := service.InitiatePayment(context.Background(), group.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, first.ProviderRef, second.ProviderRef)
}

func TestInitiatePaymentFreeGroupRejected(t *testing.T) {
	service, _, _, _, _ := groupFixture(t)

	group, err := service.Create(context.Background(), CreateGroupInput{Title: "Oficina", CreatorID: 1})
	require.NoError(t, err)

	_, _, err = service.InitiatePayment(context.Background(), group.ID, 7)
	assert.ErrorIs(t, err, ErrPaymentNotApplicable)
}

func TestInitiatePaymentCompletedRejected(t *testing.T) {
	service, _, membershipRepo, _, _ := groupFixture(t)

	group, err := service.Create(context.Background(), CreateGroupInput{Title: "Oficina", Fee: 100, CreatorID: 1})
	require.NoError(t, err)

	payment, _, err := service.InitiatePayment(context.Background(), group.ID, 7)
	require.NoError(t, err)

	member, err := membershipRepo.GetByUserAndGroup(context.Background(), 7, group.ID)
	require.NoError(t, err)
	payment.Completed = true
	member.Payment = payment

	_, _, err = service.InitiatePayment(context.Background(), group.ID, 7)
	assert.ErrorIs(t, err, ErrPaymentAlreadyExists)
}

func TestCompletePayment(t *testing.T) {
	service, _, _, paymentRepo, _ := groupFixture(t)

	group, err := service.Create(context.Background(), CreateGroupInput{Title: "Oficina", Fee: 100, CreatorID: 1})
	require.NoError(t, err)

	payment, _, err := service.InitiatePayment(context.Background(), group.ID, 7)
	require.NoError(t, err)

	completed, err := service.CompletePayment(context.Background(), payment.ProviderRef)
	require.NoError(t, err)
	assert.True(t, completed.Completed)

	stored, err := paymentRepo.GetByProviderRef(context.Background(), payment.ProviderRef)
	require.NoError(t, err)
	assert.True(t, stored.Completed)
}

func TestCompletePaymentUnknownRef(t *testing.T) {
	service, _, _, _, _ := groupFixture(t)

	_, err := service.CompletePayment(context.Background(), "no-such-ref")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestListAllRequiresAdmin(t *testing.T) {
	service, groupRepo, _, _, _ := groupFixture(t)

	uy := "uy"
	br := "br"
	require.NoError(t, groupRepo.Create(context.Background(), &models.Group{Title: "Montevideo", Description: &uy}))
	require.NoError(t, groupRepo.Create(context.Background(), &models.Group{Title: "Rio", Description: &br}))

	admin := &models.User{ID: 1, Role: models.RoleAdmin, Country: "uy"}
	groups, err := service.List(context.Background(), GroupsFilterAll, admin)
	require.NoError(t, err)
	assert.Len(t, groups, 2)

	// Для обычного пользователя "all" сводится к его стране.
	user := &models.User{ID: 2, Role: models.RoleUser, Country: "uy"}
	groups, err = service.List(context.Background(), GroupsFilterAll, user)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Montevideo", groups[0].Title)
}

func TestFinishGroup(t *testing.T) {
	service, groupRepo, _, _, _ := groupFixture(t)

	group, err := service.Create(context.Background(), CreateGroupInput{Title: "Oficina", CreatorID: 1})
	require.NoError(t, err)

	require.NoError(t, service.Finish(context.Background(), group.ID))
	stored, err := groupRepo.GetByID(context.Background(), group.ID)
	require.NoError(t, err)
	assert.True(t, stored.Finished)

	assert.ErrorIs(t, service.Finish(context.Background(), 999), ErrGroupNotFound)
}

func TestUploadLogoReplacesPrevious(t *testing.T) {
	service, groupRepo, _, _, uploader := groupFixture(t)

	group, err := service.Create(context.Background(), CreateGroupInput{Title: "Oficina", CreatorID: 1})
	require.NoError(t, err)

	oldKey := "groups/1/logo-old"
	require.NoError(t, groupRepo.UpdateLogoKey(context.Background(), group.ID, &oldKey))

	updated, err := service.UploadLogo(context.Background(), group.ID, "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.NotNil(t, updated.LogoKey)
	require.NotNil(t, updated.LogoURL)
	assert.Contains(t, *updated.LogoURL, *updated.LogoKey)
	assert.Equal(t, []string{oldKey}, uploader.deleted)
}
