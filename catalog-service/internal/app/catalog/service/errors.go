package service

import "errors"

// Ошибки бизнес-логики для обработки в handlers
var (
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryAlreadyExists = errors.New("category with this name already exists")
	ErrCategoryHasProducts   = errors.New("category has products")
	ErrProductNotFound       = errors.New("product not found")
	ErrProductNotInCategory  = errors.New("product does not belong to this category")
)
