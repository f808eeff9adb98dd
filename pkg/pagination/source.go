package pagination

import (
	"context"
	"fmt"
)

// Source упорядоченная коллекция, адресуемая по позиции.
// Реализуется слоем хранения, передается явно в каждый вызов Fetch
type Source[T any] interface {
	Count(ctx context.Context) (int, error)
	Slice(ctx context.Context, start, end int) ([]T, error)
}

// Page видимая часть коллекции вместе с навигацией
type Page[T any] struct {
	Items      []T        `json:"data"`
	Navigation Navigation `json:"navigation"`
}

// Fetch считает размер коллекции, вычисляет окно и загружает срез
func Fetch[T any](ctx context.Context, e *Engine, src Source[T], start, limit int, basePath string) (*Page[T], error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", ErrInvalidConfig)
	}

	total, err := src.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count collection: %w", err)
	}

	window, err := e.Paginate(total, start, limit, basePath)
	if err != nil {
		return nil, err
	}

	items := make([]T, 0)
	if window.End > window.Start {
		items, err = src.Slice(ctx, window.Start, window.End)
		if err != nil {
			return nil, fmt.Errorf("failed to load page: %w", err)
		}
		if items == nil {
			items = make([]T, 0)
		}
	}

	return &Page[T]{Items: items, Navigation: window.Navigation}, nil
}

// SliceSource адаптер Source над срезом в памяти
type SliceSource[T any] []T

func (s SliceSource[T]) Count(context.Context) (int, error) {
	return len(s), nil
}

func (s SliceSource[T]) Slice(_ context.Context, start, end int) ([]T, error) {
	return s[start:end], nil
}
