package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed      = errors.New("validation failed")
	ErrPasswordTooShort      = errors.New("password is too short")
	ErrGroupTitleRequired    = errors.New("group title is required")
	ErrGroupFeeNegative      = errors.New("group fee must not be negative")
	ErrScoreNegative         = errors.New("predicted score must not be negative")
	ErrRoundUnknown          = errors.New("unknown knockout round size")
	ErrRoundOverflow         = errors.New("round selection exceeds round size")
	ErrSelfPairPrediction    = errors.New("a team cannot play against itself")
	ErrStageGroupMismatch    = errors.New("teams belong to different stage groups")
	ErrTeamUnknown           = errors.New("prediction references unknown team")
	ErrGroupFinished         = errors.New("group is finished, predictions are closed")
	ErrPaymentRequired       = errors.New("entrance fee payment is required")
	ErrPaymentPending        = errors.New("payment is pending")
	ErrPaymentAlreadyExists  = errors.New("payment has already been initiated")
	ErrPaymentNotApplicable  = errors.New("group has no entrance fee")

	// Ошибки конфликтов
	ErrUserEmailConflict  = errors.New("email address is already in use")
	ErrGroupTitleConflict = errors.New("group title is already in use")
	ErrMembershipConflict = errors.New("user is already a member of this group")

	// Ошибки аутентификации и авторизации
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrGroupPasswordIncorrect = errors.New("group password is not correct")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound       = errors.New("user not found")
	ErrGroupNotFound      = errors.New("group not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrPredictionNotFound = errors.New("prediction not found")
	ErrPaymentNotFound    = errors.New("payment not found")
)
