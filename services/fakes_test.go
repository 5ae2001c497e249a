package services

import (
	"context"
	"io"
	"log/slog"

	"github.com/ppenca/penca/models"
	"github.com/ppenca/penca/repositories"
	"github.com/ppenca/penca/storage"
)

// In-memory репозитории для тестов сервисов; поведение по ошибкам
// повторяет postgres-реализации.

type fakeGroupRepo struct {
	groups map[int]*models.Group
	nextID int
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{groups: make(map[int]*models.Group), nextID: 1}
}

func (r *fakeGroupRepo) Create(ctx context.Context, group *models.Group) error {
	for _, existing := range r.groups {
		if existing.Title == group.Title {
			return repositories.ErrGroupTitleConflict
		}
	}
	group.ID = r.nextID
	r.nextID++
	group.HasPassword = group.PasswordHash != nil
	r.groups[group.ID] = group
	return nil
}

func (r *fakeGroupRepo) GetByID(ctx context.Context, id int) (*models.Group, error) {
	group, ok := r.groups[id]
	if !ok {
		return nil, repositories.ErrGroupNotFound
	}
	return group, nil
}

func (r *fakeGroupRepo) ListAll(ctx context.Context) ([]models.Group, error) {
	result := make([]models.Group, 0, len(r.groups))
	for _, group := range r.groups {
		result = append(result, *group)
	}
	return result, nil
}

func (r *fakeGroupRepo) ListByCountry(ctx context.Context, country string) ([]models.Group, error) {
	// Страна группы определяется страной создателя; для тестов
	// достаточно фильтра по заранее заданной метке в Description.
	result := make([]models.Group, 0)
	for _, group := range r.groups {
		if group.Description != nil && *group.Description == country {
			result = append(result, *group)
		}
	}
	return result, nil
}

func (r *fakeGroupRepo) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	group, ok := r.groups[id]
	if !ok {
		return repositories.ErrGroupNotFound
	}
	group.LogoKey = logoKey
	return nil
}

func (r *fakeGroupRepo) SetFinished(ctx context.Context, id int, finished bool) error {
	group, ok := r.groups[id]
	if !ok {
		return repositories.ErrGroupNotFound
	}
	group.Finished = finished
	return nil
}

type fakeMembershipRepo struct {
	members map[int]*models.Membership
	nextID  int
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{members: make(map[int]*models.Membership), nextID: 1}
}

func (r *fakeMembershipRepo) Create(ctx context.Context, m *models.Membership) error {
	for _, existing := range r.members {
		if existing.UserID == m.UserID && existing.GroupID == m.GroupID {
			return repositories.ErrMembershipConflict
		}
	}
	m.ID = r.nextID
	r.nextID++
	r.members[m.ID] = m
	return nil
}

func (r *fakeMembershipRepo) GetByID(ctx context.Context, id int) (*models.Membership, error) {
	member, ok := r.members[id]
	if !ok {
		return nil, repositories.ErrMembershipNotFound
	}
	return member, nil
}

func (r *fakeMembershipRepo) GetByUserAndGroup(ctx context.Context, userID, groupID int) (*models.Membership, error) {
	for _, member := range r.members {
		if member.UserID == userID && member.GroupID == groupID {
			return member, nil
		}
	}
	return nil, repositories.ErrMembershipNotFound
}

func (r *fakeMembershipRepo) UpdateScore(ctx context.Context, id int, score int) error {
	member, ok := r.members[id]
	if !ok {
		return repositories.ErrMembershipNotFound
	}
	member.Score = score
	return nil
}

type fakePaymentRepo struct {
	payments map[int]*models.Payment
	nextID   int
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[int]*models.Payment), nextID: 1}
}

func (r *fakePaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	for _, existing := range r.payments {
		if existing.MemberID == payment.MemberID {
			return repositories.ErrPaymentConflict
		}
	}
	payment.ID = r.nextID
	r.nextID++
	r.payments[payment.ID] = payment
	return nil
}

func (r *fakePaymentRepo) GetByMemberID(ctx context.Context, memberID int) (*models.Payment, error) {
	for _, payment := range r.payments {
		if payment.MemberID == memberID {
			return payment, nil
		}
	}
	return nil, repositories.ErrPaymentNotFound
}

func (r *fakePaymentRepo) GetByProviderRef(ctx context.Context, ref string) (*models.Payment, error) {
	for _, payment := range r.payments {
		if payment.ProviderRef == ref {
			return payment, nil
		}
	}
	return nil, repositories.ErrPaymentNotFound
}

func (r *fakePaymentRepo) MarkCompleted(ctx context.Context, id int) error {
	payment, ok := r.payments[id]
	if !ok {
		return repositories.ErrPaymentNotFound
	}
	payment.Completed = true
	return nil
}

type fakeTeamRepo struct {
	teams []models.Team
}

func (r *fakeTeamRepo) ListAll(ctx context.Context) ([]models.Team, error) {
	return r.teams, nil
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	for i := range r.teams {
		if r.teams[i].ID == id {
			return &r.teams[i], nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

type fakePredictionRepo struct {
	stored      map[[2]int]*models.Prediction
	upsertCalls int
}

func newFakePredictionRepo() *fakePredictionRepo {
	return &fakePredictionRepo{stored: make(map[[2]int]*models.Prediction)}
}

func (r *fakePredictionRepo) Upsert(ctx context.Context, prediction *models.Prediction) error {
	r.upsertCalls++
	key := [2]int{prediction.UserID, prediction.GroupID}
	if existing, ok := r.stored[key]; ok {
		prediction.ID = existing.ID
	} else {
		prediction.ID = len(r.stored) + 1
	}
	r.stored[key] = prediction
	return nil
}

func (r *fakePredictionRepo) GetByUserAndGroup(ctx context.Context, userID, groupID int) (*models.Prediction, error) {
	prediction, ok := r.stored[[2]int{userID, groupID}]
	if !ok {
		return nil, repositories.ErrPredictionNotFound
	}
	return prediction, nil
}

func (r *fakePredictionRepo) ListByGroup(ctx context.Context, groupID int) ([]models.Prediction, error) {
	result := make([]models.Prediction, 0)
	for key, prediction := range r.stored {
		if key[1] == groupID {
			result = append(result, *prediction)
		}
	}
	return result, nil
}

type fakeUploader struct {
	uploaded map[string]string
	deleted  []string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploaded: make(map[string]string)}
}

func (u *fakeUploader) Upload(ctx context.Context, key, contentType string, file io.Reader) (*storage.UploadResult, error) {
	u.uploaded[key] = contentType
	return &storage.UploadResult{Key: key, Location: "https://cdn.test/" + key}, nil
}

func (u *fakeUploader) Delete(ctx context.Context, key string) error {
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
