// Package leaderboard renders the paginated member table of a group.
// The order is exactly what the backend returned; no client-side
// resorting.
package leaderboard

import (
	"errors"

	"github.com/ppenca/penca/models"
)

// Варианты размера страницы, как в таблице на странице группы.
var PageSizeOptions = []int{5, 10, 25}

const DefaultPageSize = 10

// Placeholder показывается вместо пустой таблицы.
const Placeholder = "No predictions yet."

var ErrPageSizeInvalid = errors.New("leaderboard: page size is not one of the allowed options")

// View — состояние пагинации поверх списка участников.
type View struct {
	members  []models.Membership
	page     int
	pageSize int
}

func New(members []models.Membership) *View {
	return &View{
		members:  members,
		pageSize: DefaultPageSize,
	}
}

func (v *View) Page() int     { return v.page }
func (v *View) PageSize() int { return v.pageSize }
func (v *View) Total() int    { return len(v.members) }

// PageCount возвращает ceil(N/P).
func (v *View) PageCount() int {
	return (len(v.members) + v.pageSize - 1) / v.pageSize
}

// SetPage переводит на страницу, ограничивая её валидным диапазоном.
func (v *View) SetPage(page int) {
	maxPage := v.PageCount() - 1
	if maxPage < 0 {
		maxPage = 0
	}
	if page < 0 {
		page = 0
	}
	if page > maxPage {
		page = maxPage
	}
	v.page = page
}

// SetPageSize меняет размер страницы и сбрасывает текущую страницу на
// первую. Недопустимый размер отклоняется без изменения состояния.
func (v *View) SetPageSize(size int) error {
	allowed := false
	for _, option := range PageSizeOptions {
		if option == size {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrPageSizeInvalid
	}
	v.pageSize = size
	v.page = 0
	return nil
}

// Rows возвращает участников текущей страницы в порядке бэкенда.
func (v *View) Rows() []models.Membership {
	start := v.page * v.pageSize
	if start >= len(v.members) {
		return nil
	}
	end := start + v.pageSize
	if end > len(v.members) {
		end = len(v.members)
	}
	return v.members[start:end]
}

// Empty сообщает, что показывать надо плейсхолдер, а не таблицу.
func (v *View) Empty() bool {
	return len(v.members) == 0
}
