// Package gate implements the access-control state machine deciding
// whether a viewer may see a group's content, must enter its password,
// or must pay the entrance fee first.
package gate

import (
	"context"
	"fmt"

	"github.com/ppenca/penca/models"
	"github.com/ppenca/penca/session"
)

// State — состояние гейта для текущего просмотра группы. Состояние не
// кэшируется между навигациями: при каждом входе гейт строится заново.
type State int

const (
	StateLocked State = iota
	StateAwaitingPassword
	StateUnlocked
	StatePaymentPending
)

func (s State) String() string {
	switch s {
	case StateLocked:
		return "Locked"
	case StateAwaitingPassword:
		return "AwaitingPassword"
	case StateUnlocked:
		return "Unlocked"
	case StatePaymentPending:
		return "PaymentPending"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Тексты формы и уведомлений, как их показывает страница группы.
const (
	ErrPasswordIncorrect = "Password is not correct"
	ErrPasswordRequired  = "Please enter password"
	NoticePaymentPending = "Payment is pending now"
)

// PasswordConfirmer отправляет кандидата пароля на бэкенд. Truthy-ответ
// и только он переводит гейт в Unlocked.
type PasswordConfirmer interface {
	ConfirmGroupPassword(ctx context.Context, groupID int, password string) (bool, error)
}

// Gate держит состояние доступа одного зрителя к одной группе.
type Gate struct {
	group     *models.Group
	sess      *session.Session
	confirmer PasswordConfirmer

	state      State
	fieldError string // инлайн-ошибка поля пароля
	notice     string // неблокирующее уведомление
}

// New строит гейт в начальном состоянии: Locked, если у группы есть
// пароль и зритель не обходит гейты; иначе Unlocked.
func New(group *models.Group, sess *session.Session, confirmer PasswordConfirmer) *Gate {
	g := &Gate{
		group:     group,
		sess:      sess,
		confirmer: confirmer,
		state:     StateUnlocked,
	}
	if group.HasPassword && !sess.CanBypassGates() {
		g.state = StateLocked
	}
	return g
}

func (g *Gate) State() State       { return g.state }
func (g *Gate) FieldError() string { return g.fieldError }
func (g *Gate) Notice() string     { return g.notice }

// SubmitPassword проверяет пароль через бэкенд. Пустой пароль и
// неверный пароль — локально восстановимые ошибки формы; сетевая
// ошибка возвращается вызывающему, и гейт остаётся закрытым
// (fail closed).
func (g *Gate) SubmitPassword(ctx context.Context, password string) error {
	if g.state != StateLocked && g.state != StateAwaitingPassword {
		return nil
	}

	if password == "" {
		g.fieldError = ErrPasswordRequired
		return nil
	}

	g.state = StateAwaitingPassword
	confirmed, err := g.confirmer.ConfirmGroupPassword(ctx, g.group.ID, password)
	if err != nil {
		g.state = StateLocked
		return fmt.Errorf("password confirmation failed: %w", err)
	}

	if !confirmed {
		g.state = StateLocked
		g.fieldError = ErrPasswordIncorrect
		return nil
	}

	g.state = StateUnlocked
	g.fieldError = ""
	return nil
}

// PredictionURL — адрес мастера прогнозов для этой группы.
func (g *Gate) PredictionURL() string {
	return fmt.Sprintf("/prediction?group_id=%d", g.group.ID)
}

// StartPrediction обрабатывает нажатие "Prediction". Возвращает адрес
// перехода и true, если переход разрешён; иначе гейт переходит в
// PaymentPending и показывает диалог оплаты (или уведомление об уже
// начатом платеже).
func (g *Gate) StartPrediction() (string, bool) {
	if g.state != StateUnlocked {
		return "", false
	}
	if g.sess.CanBypassGates() {
		return g.PredictionURL(), true
	}
	if g.group.Fee <= 0 {
		return g.PredictionURL(), true
	}

	member := g.membership()
	if member != nil && member.Payment != nil && member.Payment.Completed {
		return g.PredictionURL(), true
	}

	g.state = StatePaymentPending
	if member != nil && member.Payment != nil {
		g.notice = NoticePaymentPending
	}
	return "", false
}

// ApplyPaymentStatus применяет состояние платежа, о котором отчитался
// бэкенд (poll или redirect-back). Только завершённый платёж открывает
// гейт; незавершённый оставляет PaymentPending с уведомлением.
func (g *Gate) ApplyPaymentStatus(payment *models.Payment) {
	if g.state != StatePaymentPending {
		return
	}
	if payment != nil && payment.Completed {
		g.state = StateUnlocked
		g.notice = ""
		return
	}
	g.notice = NoticePaymentPending
}

func (g *Gate) membership() *models.Membership {
	for i := range g.group.Members {
		m := &g.group.Members[i]
		if m.UserID == g.sess.UserID {
			return m
		}
		if m.User != nil && m.User.Email == g.sess.Email {
			return m
		}
	}
	return nil
}
