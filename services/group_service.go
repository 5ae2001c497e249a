package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/ppenca/penca/live"
	"github.com/ppenca/penca/models"
	"github.com/ppenca/penca/repositories"
	"github.com/ppenca/penca/storage"
	"golang.org/x/crypto/bcrypt"
)

// GroupsFilterAll запрашивает все группы; доступно только ADMIN.
const GroupsFilterAll = "all"

type GroupService interface {
	List(ctx context.Context, filter string, viewer *models.User) ([]models.Group, error)
	GetByID(ctx context.Context, id int) (*models.Group, error)
	Create(ctx context.Context, input CreateGroupInput) (*models.Group, error)
	// ConfirmPassword проверяет пароль группы. Неверный пароль — это
	// отказ (false, nil), а не ошибка: форма показывает его инлайн.
	ConfirmPassword(ctx context.Context, groupID int, candidate string) (bool, error)
	InitiatePayment(ctx context.Context, groupID, userID int) (*models.Payment, string, error)
	CompletePayment(ctx context.Context, providerRef string) (*models.Payment, error)
	UpdateMemberScore(ctx context.Context, groupID, memberID, score int) error
	Finish(ctx context.Context, groupID int) error
	UploadLogo(ctx context.Context, groupID int, contentType string, file io.Reader) (*models.Group, error)
}

type CreateGroupInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Password    *string `json:"password"`
	Fee         float64 `json:"fee"`
	CreatorID   int     `json:"user"`
}

type groupService struct {
	groupRepo      repositories.GroupRepository
	membershipRepo repositories.MembershipRepository
	paymentRepo    repositories.PaymentRepository
	uploader       storage.FileUploader
	hub            *live.Hub
	paymentBaseURL string
	logger         *slog.Logger
}

func NewGroupService(
	groupRepo repositories.GroupRepository,
	membershipRepo repositories.MembershipRepository,
	paymentRepo repositories.PaymentRepository,
	uploader storage.FileUploader,
	hub *live.Hub,
	paymentBaseURL string,
	logger *slog.Logger,
) GroupService {
	return &groupService{
		groupRepo:      groupRepo,
		membershipRepo: membershipRepo,
		paymentRepo:    paymentRepo,
		uploader:       uploader,
		hub:            hub,
		paymentBaseURL: paymentBaseURL,
		logger:         logger,
	}
}

func (s *groupService) List(ctx context.Context, filter string, viewer *models.User) ([]models.Group, error) {
	// Фильтр "all" доступен только администраторам; для остальных
	// запрос сводится к стране зрителя.
	if filter == GroupsFilterAll && viewer.Role == models.RoleAdmin {
		groups, err := s.groupRepo.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list groups: %w", err)
		}
		return s.withLogoURLs(groups), nil
	}

	country := filter
	if country == "" || country == GroupsFilterAll {
		country = viewer.Country
	}
	groups, err := s.groupRepo.ListByCountry(ctx, country)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups for country %s: %w", country, err)
	}
	return s.withLogoURLs(groups), nil
}

func (s *groupService) GetByID(ctx context.Context, id int) (*models.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	s.populateLogoURL(group)
	return group, nil
}

func (s *groupService) Create(ctx context.Context, input CreateGroupInput) (*models.Group, error) {
	if input.Title == "" {
		return nil, ErrGroupTitleRequired
	}
	if input.Fee < 0 {
		return nil, ErrGroupFeeNegative
	}

	group := &models.Group{
		Title:       input.Title,
		Description: input.Description,
		CreatorID:   input.CreatorID,
		Fee:         input.Fee,
	}

	if input.Password != nil && *input.Password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash group password: %w", err)
		}
		hash := string(hashedPassword)
		group.PasswordHash = &hash
	}

	if err := s.groupRepo.Create(ctx, group); err != nil {
		switch {
		case errors.Is(err, repositories.ErrGroupTitleConflict):
			return nil, ErrGroupTitleConflict
		case errors.Is(err, repositories.ErrGroupCreatorInvalid):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return group, nil
}

func (s *groupService) ConfirmPassword(ctx context.Context, groupID int, candidate string) (bool, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return false, ErrGroupNotFound
		}
		return false, err
	}

	if group.PasswordHash == nil {
		return true, nil
	}

	err = bcrypt.CompareHashAndPassword([]byte(*group.PasswordHash), []byte(candidate))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("failed to compare group password hash: %w", err)
	}
	return true, nil
}

// InitiatePayment создаёт (при необходимости) членство и платёж и
// возвращает ссылку на внешнего провайдера, собранную из суммы взноса.
func (s *groupService) InitiatePayment(ctx context.Context, groupID, userID int) (*models.Payment, string, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return nil, "", ErrGroupNotFound
		}
		return nil, "", err
	}
	if group.Fee <= 0 {
		return nil, "", ErrPaymentNotApplicable
	}

	member, err := s.membershipRepo.GetByUserAndGroup(ctx, userID, groupID)
	if err != nil {
		if !errors.Is(err, repositories.ErrMembershipNotFound) {
			return nil, "", err
		}
		member = &models.Membership{UserID: userID, GroupID: groupID}
		if createErr := s.membershipRepo.Create(ctx, member); createErr != nil {
			return nil, "", fmt.Errorf("failed to create membership: %w", createErr)
		}
	}

	if member.Payment != nil {
		if member.Payment.Completed {
			return nil, "", ErrPaymentAlreadyExists
		}
		// Незавершённый платёж переиспользуется: провайдер мог ещё
		// не отчитаться о redirect-back.
		return member.Payment, s.redirectURL(member.Payment), nil
	}

	payment := &models.Payment{
		MemberID:    member.ID,
		Amount:      group.Fee,
		ProviderRef: generateProviderRef(24),
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, repositories.ErrPaymentConflict) {
			return nil, "", ErrPaymentAlreadyExists
		}
		return nil, "", fmt.Errorf("failed to create payment: %w", err)
	}

	s.logger.Info("payment initiated",
		slog.Int("group_id", groupID),
		slog.Int("user_id", userID),
		slog.String("provider_ref", payment.ProviderRef),
	)
	return payment, s.redirectURL(payment), nil
}

func (s *groupService) CompletePayment(ctx context.Context, providerRef string) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByProviderRef(ctx, providerRef)
	if err != nil {
		if errors.Is(err, repositories.ErrPaymentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	if !payment.Completed {
		if err := s.paymentRepo.MarkCompleted(ctx, payment.ID); err != nil {
			return nil, fmt.Errorf("failed to mark payment completed: %w", err)
		}
		payment.Completed = true
	}

	member, err := s.membershipRepo.GetByID(ctx, payment.MemberID)
	if err != nil {
		// Платёж уже зафиксирован; отсутствие комнаты не откатывает его.
		s.logger.Warn("completed payment has no resolvable membership", slog.Int("payment_id", payment.ID), slog.Any("error", err))
		return payment, nil
	}

	s.hub.BroadcastToRoom(live.GroupRoom(member.GroupID), live.Message{
		Type:    live.MessagePaymentCompleted,
		Payload: payment,
	})
	return payment, nil
}

func (s *groupService) UpdateMemberScore(ctx context.Context, groupID, memberID, score int) error {
	if err := s.membershipRepo.UpdateScore(ctx, memberID, score); err != nil {
		if errors.Is(err, repositories.ErrMembershipNotFound) {
			return ErrMembershipNotFound
		}
		return err
	}

	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return err
	}

	s.hub.BroadcastToRoom(live.GroupRoom(groupID), live.Message{
		Type:    live.MessageLeaderboardUpdated,
		Payload: group.Members,
	})
	return nil
}

func (s *groupService) Finish(ctx context.Context, groupID int) error {
	if err := s.groupRepo.SetFinished(ctx, groupID, true); err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return ErrGroupNotFound
		}
		return err
	}
	return nil
}

func (s *groupService) UploadLogo(ctx context.Context, groupID int, contentType string, file io.Reader) (*models.Group, error) {
	group, err := s.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("groups/%d/logo-%d", groupID, time.Now().Unix())
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload group logo: %w", err)
	}

	oldKey := group.LogoKey
	if err := s.groupRepo.UpdateLogoKey(ctx, groupID, &result.Key); err != nil {
		return nil, err
	}
	if oldKey != nil && *oldKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.Warn("failed to delete previous group logo", slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	group.LogoKey = &result.Key
	s.populateLogoURL(group)
	return group, nil
}

func (s *groupService) redirectURL(payment *models.Payment) string {
	return fmt.Sprintf("%s?amount=%s&ref=%s",
		s.paymentBaseURL,
		strconv.FormatFloat(payment.Amount, 'f', 2, 64),
		payment.ProviderRef,
	)
}

func (s *groupService) withLogoURLs(groups []models.Group) []models.Group {
	for i := range groups {
		s.populateLogoURL(&groups[i])
	}
	return groups
}

func (s *groupService) populateLogoURL(group *models.Group) {
	if group.LogoKey == nil || s.uploader == nil {
		return
	}
	url := s.uploader.GetPublicURL(*group.LogoKey)
	if url != "" {
		group.LogoURL = &url
	}
}

func generateProviderRef(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Sprintf("ref-%d", time.Now().UnixNano())
	}
	b := make([]byte, length)
	for i, rb := range randomBytes {
		b[i] = charset[int(rb)%len(charset)]
	}
	return string(b)
}
