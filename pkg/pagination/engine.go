package pagination

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"productcatalog/pkg/apperr"
)

const (
	// DefaultMaxLimit верхняя граница размера страницы
	DefaultMaxLimit = 250
	// DefaultPageLimit используется, если клиент не передал limit
	DefaultPageLimit = 100
)

// ErrInvalidConfig ошибка программиста: неверная настройка движка или входных данных,
// не зависящих от клиента (например отрицательный размер коллекции)
var ErrInvalidConfig = errors.New("pagination: invalid configuration")

// Engine вычисляет границы страницы и навигационные ссылки.
// Не хранит состояние между вызовами, безопасен для конкурентного использования
type Engine struct {
	maxLimit     int
	defaultLimit int
}

// NewEngine создает движок пагинации
func NewEngine(maxLimit, defaultLimit int) (*Engine, error) {
	if maxLimit <= 0 {
		return nil, fmt.Errorf("%w: max limit must be positive, got %d", ErrInvalidConfig, maxLimit)
	}
	if defaultLimit <= 0 || defaultLimit > maxLimit {
		return nil, fmt.Errorf("%w: default limit must be in [1, %d], got %d", ErrInvalidConfig, maxLimit, defaultLimit)
	}
	return &Engine{maxLimit: maxLimit, defaultLimit: defaultLimit}, nil
}

func (e *Engine) MaxLimit() int     { return e.maxLimit }
func (e *Engine) DefaultLimit() int { return e.defaultLimit }

// Navigation навигационные метаданные страницы
type Navigation struct {
	Self    string  `json:"self"`
	Next    *string `json:"next"`
	Prev    *string `json:"prev"`
	Pages   int     `json:"pages"`
	Current int     `json:"current"`
}

// Window границы среза [Start, End) и навигация по коллекции
type Window struct {
	Start      int
	End        int
	Limit      int
	Total      int
	Navigation Navigation
}

// ParseLimit разбирает параметр limit из query string
func (e *Engine) ParseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return e.defaultLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, apperr.InvalidParameter("limit", fmt.Sprintf("limit parameter %q is not a positive integer", raw)).
			WithSuggestion(fmt.Sprintf("Omit the limit parameter to use the default %d limit", e.defaultLimit))
	}
	if limit > e.maxLimit {
		return 0, e.limitExceeded(limit)
	}
	return limit, nil
}

// ParseStart разбирает позиционный параметр start.
// Значение должно быть целым числом >= 0, разрешение ID в позицию делает вызывающий код
func (e *Engine) ParseStart(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	start, err := strconv.Atoi(raw)
	if err != nil || start < 0 {
		return 0, apperr.InvalidParameter("start", fmt.Sprintf("start parameter %q is not a non-negative integer", raw)).
			WithSuggestion("Omit the start parameter and use the navigation URIs of the response")
	}
	return start, nil
}

// FromPage переводит вариант page/page_size в смещение start
func (e *Engine) FromPage(page, pageSize int) (int, error) {
	if page < 1 {
		return 0, apperr.InvalidParameter("page", "page must be >= 1")
	}
	if pageSize <= 0 {
		return 0, apperr.InvalidParameter("page_size", "page_size must be a positive integer")
	}
	if pageSize > e.maxLimit {
		return 0, e.limitExceeded(pageSize)
	}
	return (page - 1) * pageSize, nil
}

// Paginate вычисляет срез и навигацию для коллекции из total элементов.
//
//	end     = min(start+limit, total)
//	pages   = ceil(total/limit)
//	current = ceil((start+1)/limit), 1 для пустой коллекции
//
// Ссылка prev всегда указывает на валидную страницу: если перед start меньше
// limit элементов, prev ведет на первую страницу.
//
// start == total допустим и дает пустую страницу за концом коллекции. Для нее
// current может быть больше pages: total=10, start=10, limit=5 дает current=3, pages=2
func (e *Engine) Paginate(total, start, limit int, basePath string) (Window, error) {
	if total < 0 {
		return Window{}, fmt.Errorf("%w: negative total count %d", ErrInvalidConfig, total)
	}
	if limit <= 0 {
		return Window{}, apperr.InvalidParameter("limit", "limit must be a positive integer")
	}
	if limit > e.maxLimit {
		return Window{}, e.limitExceeded(limit)
	}
	if start < 0 {
		return Window{}, apperr.InvalidParameter("start", "start must be a non-negative integer")
	}
	if start > total {
		return Window{}, apperr.NotFound("start", fmt.Sprintf("start position %d is beyond the end of the collection (%d items)", start, total)).
			WithSuggestion("Use the navigation URIs of a previous response to walk the collection")
	}

	end := min(start+limit, total)

	nav := Navigation{
		Self:    link(basePath, start, limit),
		Pages:   ceilDiv(total, limit),
		Current: ceilDiv(start+1, limit),
	}
	if total == 0 {
		nav.Current = 1
	}
	if end < total {
		next := link(basePath, end, limit)
		nav.Next = &next
	}
	if start > 0 {
		prev := link(basePath, max(start-limit, 0), limit)
		nav.Prev = &prev
	}

	return Window{
		Start:      start,
		End:        end,
		Limit:      limit,
		Total:      total,
		Navigation: nav,
	}, nil
}

func (e *Engine) limitExceeded(limit int) *apperr.Error {
	return apperr.LimitExceeded("limit", fmt.Sprintf("limit %d is larger than the maximum allowed value (%d)", limit, e.maxLimit)).
		WithSuggestion("Resubmit request with smaller limit")
}

// link добавляет start и limit к basePath. basePath может уже содержать
// query string с фильтрами, тогда параметры дописываются через &
func link(basePath string, start, limit int) string {
	sep := "?"
	if strings.Contains(basePath, "?") {
		sep = "&"
	}
	return basePath + sep + "start=" + strconv.Itoa(start) + "&limit=" + strconv.Itoa(limit)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
