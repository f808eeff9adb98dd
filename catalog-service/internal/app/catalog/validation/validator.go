package validation

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNilCandidate ошибка программиста: валидатор вызван без записи
var ErrNilCandidate = errors.New("validation: nil candidate")

var skuPattern = regexp.MustCompile(`^[A-Z]{3}-\d{5}$`)

const (
	msgRequired   = "This field is required."
	msgNotNull    = "This field may not be null."
	msgSKU        = "SKU must be in format: ABC-12345 (3 uppercase letters, hyphen, 5 digits)"
	msgDimensions = `Dimensions must be in format: LxWxH (e.g., "10x20x30")`
	msgDiscount   = "Discount price must be less than regular price"
)

// Размеры колонок products: значение, которое не помещается в колонку,
// отклоняется здесь, а не ошибкой БД
const (
	moneyPrecision   = 10 // numeric(10,2)
	weightPrecision  = 6  // numeric(6,2)
	ratingPrecision  = 3  // numeric(3,2)
	decimalScale     = 2
	maxDimensionsLen = 50
	maxTagsStoredLen = 200
)

// Options политика валидации, выбирается конфигурацией сервиса
type Options struct {
	Required       []string // Обязательные при создании поля
	AllowZeroPrice bool     // Разрешить price == 0
	Strict         bool     // Отклонять неизвестные и read-only поля
}

// Validator проверяет запись товара перед созданием или частичным обновлением.
// Не хранит состояние между вызовами
type Validator struct {
	opts     Options
	required map[string]bool
	tags     *validator.Validate
}

// New создает валидатор и регистрирует собственные теги sku и dimensions
func New(opts Options) (*Validator, error) {
	if opts.Required == nil {
		opts.Required = DefaultRequired
	}

	v := validator.New()
	if err := v.RegisterValidation("sku", func(fl validator.FieldLevel) bool {
		return skuPattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("failed to register sku validation: %w", err)
	}
	if err := v.RegisterValidation("dimensions", func(fl validator.FieldLevel) bool {
		_, ok := ParseDimensions(fl.Field().String())
		return ok
	}); err != nil {
		return nil, fmt.Errorf("failed to register dimensions validation: %w", err)
	}

	required := make(map[string]bool, len(opts.Required))
	for _, f := range opts.Required {
		required[f] = true
	}

	return &Validator{opts: opts, required: required, tags: v}, nil
}

// Options возвращает текущую политику
func (v *Validator) Options() Options {
	return v.opts
}

type fieldRule struct {
	name     string
	nullable bool
	check    func(v *Validator, raw any, res *Result)
}

// порядок правил фиксирован, чтобы результат был детерминированным
var fieldRules = []fieldRule{
	{FieldSKU, true, (*Validator).checkSKU},
	{FieldName, false, (*Validator).checkName},
	{FieldDescription, true, (*Validator).checkDescription},
	{FieldBrand, true, (*Validator).checkBrand},
	{FieldCategory, true, (*Validator).checkCategory},
	{FieldTags, true, (*Validator).checkTags},
	{FieldPrice, false, (*Validator).checkPrice},
	{FieldDiscountPrice, true, (*Validator).checkDiscountPrice},
	{FieldQuantity, false, (*Validator).checkQuantity},
	{FieldLowStockThreshold, false, (*Validator).checkLowStockThreshold},
	{FieldWeight, true, (*Validator).checkWeight},
	{FieldDimensions, true, (*Validator).checkDimensions},
	{FieldStatus, false, (*Validator).checkStatus},
	{FieldFeatured, false, (*Validator).checkFeatured},
	{FieldRating, true, (*Validator).checkRating},
}

func knownField(name string) bool {
	return slices.ContainsFunc(fieldRules, func(r fieldRule) bool { return r.name == name })
}

// Validate проверяет candidate. existing == nil означает создание,
// иначе это текущая запись и candidate - частичное обновление:
// отсутствующие поля не проверяются, переданные проверяются полностью.
// Все ошибки собираются, проверка не останавливается на первом поле
func (v *Validator) Validate(candidate FieldMap, existing FieldMap) (*Result, error) {
	if candidate == nil {
		return nil, ErrNilCandidate
	}

	res := &Result{
		Errors: make(map[string][]string),
		Fields: ProductFields{Cleared: make(map[string]bool)},
	}
	creating := existing == nil

	for _, rule := range fieldRules {
		raw, present := candidate[rule.name]
		if !present {
			if creating && v.required[rule.name] {
				res.addError(rule.name, msgRequired)
			}
			continue
		}
		if raw == nil {
			if rule.nullable && !v.required[rule.name] {
				res.Fields.Cleared[rule.name] = true
			} else {
				res.addError(rule.name, msgNotNull)
			}
			continue
		}
		rule.check(v, raw, res)
	}

	v.checkDiscountAgainstPrice(candidate, existing, res)
	v.checkUnknownFields(candidate, res)

	if creating && res.Fields.LowStockThreshold == nil {
		threshold := DefaultLowStockThreshold
		res.Fields.LowStockThreshold = &threshold
	}

	res.Valid = len(res.Errors) == 0
	return res, nil
}

func (v *Validator) checkSKU(raw any, res *Result) {
	s, ok := raw.(string)
	if !ok || v.tags.Var(s, "sku") != nil {
		res.addError(FieldSKU, msgSKU)
		return
	}
	res.Fields.SKU = &s
}

func (v *Validator) checkName(raw any, res *Result) {
	s, ok := raw.(string)
	s = strings.TrimSpace(s)
	if !ok || s == "" {
		res.addError(FieldName, "name must be a non-empty string")
		return
	}
	if v.tags.Var(s, "max=200") != nil {
		res.addError(FieldName, "name must be at most 200 characters")
		return
	}
	res.Fields.Name = &s
}

func (v *Validator) checkDescription(raw any, res *Result) {
	s, ok := raw.(string)
	if !ok {
		res.addError(FieldDescription, "description must be a string")
		return
	}
	if v.tags.Var(s, "max=2000") != nil {
		res.addError(FieldDescription, "description must be at most 2000 characters")
		return
	}
	res.Fields.Description = &s
}

func (v *Validator) checkBrand(raw any, res *Result) {
	s, ok := raw.(string)
	s = strings.TrimSpace(s)
	if !ok {
		res.addError(FieldBrand, "brand must be a string")
		return
	}
	if v.required[FieldBrand] && s == "" {
		res.addError(FieldBrand, "brand must be a non-empty string")
		return
	}
	if v.tags.Var(s, "max=100") != nil {
		res.addError(FieldBrand, "brand must be at most 100 characters")
		return
	}
	res.Fields.Brand = &s
}

func (v *Validator) checkCategory(raw any, res *Result) {
	switch c := raw.(type) {
	case uuid.UUID:
		res.Fields.Category = &c
		return
	case string:
		if v.tags.Var(c, "uuid") == nil {
			id := uuid.MustParse(c)
			res.Fields.Category = &id
			return
		}
	}
	res.addError(FieldCategory, "category must be a valid category ID (UUID)")
}

// checkTags нормализует теги: обрезает пробелы и выбрасывает пустые.
// Принимается список строк или строка через запятую
func (v *Validator) checkTags(raw any, res *Result) {
	var items []string
	switch t := raw.(type) {
	case string:
		items = strings.Split(t, ",")
	case []string:
		items = t
	case []any:
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				res.addError(FieldTags, "tags must be a list of strings")
				return
			}
			items = append(items, s)
		}
	default:
		res.addError(FieldTags, "tags must be a list of strings")
		return
	}
	tags := NormalizeTags(items)
	if v.tags.Var(strings.Join(tags, ","), fmt.Sprintf("max=%d", maxTagsStoredLen)) != nil {
		res.addError(FieldTags, fmt.Sprintf("tags must be at most %d characters in total", maxTagsStoredLen))
		return
	}
	res.Fields.Tags = &tags
}

func (v *Validator) checkPrice(raw any, res *Result) {
	d, ok := toDecimal(raw)
	if !ok {
		res.addError(FieldPrice, "price must be a number")
		return
	}
	if v.opts.AllowZeroPrice {
		if d.IsNegative() {
			res.addError(FieldPrice, "price must be greater than or equal to 0")
			return
		}
	} else if !d.IsPositive() {
		res.addError(FieldPrice, "price must be greater than 0")
		return
	}
	if !checkNumeric(FieldPrice, d, moneyPrecision, res) {
		return
	}
	res.Fields.Price = &d
}

func (v *Validator) checkDiscountPrice(raw any, res *Result) {
	d, ok := toDecimal(raw)
	if !ok {
		res.addError(FieldDiscountPrice, "discount_price must be a number")
		return
	}
	if !d.IsPositive() {
		res.addError(FieldDiscountPrice, "discount_price must be greater than 0")
		return
	}
	if !checkNumeric(FieldDiscountPrice, d, moneyPrecision, res) {
		return
	}
	res.Fields.DiscountPrice = &d
}

func (v *Validator) checkQuantity(raw any, res *Result) {
	n, ok := toInt(raw)
	if !ok {
		res.addError(FieldQuantity, "quantity must be an integer")
		return
	}
	if n < 0 {
		res.addError(FieldQuantity, "quantity must be greater than or equal to 0")
		return
	}
	res.Fields.Quantity = &n
}

func (v *Validator) checkLowStockThreshold(raw any, res *Result) {
	n, ok := toInt(raw)
	if !ok {
		res.addError(FieldLowStockThreshold, "low_stock_threshold must be an integer")
		return
	}
	if n < 1 {
		res.addError(FieldLowStockThreshold, "low_stock_threshold must be greater than or equal to 1")
		return
	}
	res.Fields.LowStockThreshold = &n
}

func (v *Validator) checkWeight(raw any, res *Result) {
	d, ok := toDecimal(raw)
	if !ok {
		res.addError(FieldWeight, "weight must be a number")
		return
	}
	if !d.IsPositive() {
		res.addError(FieldWeight, "weight must be greater than 0")
		return
	}
	if !checkNumeric(FieldWeight, d, weightPrecision, res) {
		return
	}
	res.Fields.Weight = &d
}

func (v *Validator) checkDimensions(raw any, res *Result) {
	s, ok := raw.(string)
	if !ok {
		res.addError(FieldDimensions, msgDimensions)
		return
	}
	if v.tags.Var(s, fmt.Sprintf("max=%d", maxDimensionsLen)) != nil {
		res.addError(FieldDimensions, fmt.Sprintf("Ensure this field has no more than %d characters.", maxDimensionsLen))
		return
	}
	// пустая строка допустима и означает "не указано"
	if strings.TrimSpace(s) != "" && v.tags.Var(s, "dimensions") != nil {
		res.addError(FieldDimensions, msgDimensions)
		return
	}
	res.Fields.Dimensions = &s
}

func (v *Validator) checkStatus(raw any, res *Result) {
	s, ok := raw.(string)
	if !ok || v.tags.Var(s, "oneof=active inactive out_of_stock discontinued") != nil {
		res.addError(FieldStatus, "status must be one of: active, inactive, out_of_stock, discontinued")
		return
	}
	res.Fields.Status = &s
}

func (v *Validator) checkFeatured(raw any, res *Result) {
	b, ok := raw.(bool)
	if !ok {
		res.addError(FieldFeatured, "featured must be a boolean")
		return
	}
	res.Fields.Featured = &b
}

func (v *Validator) checkRating(raw any, res *Result) {
	d, ok := toDecimal(raw)
	if !ok {
		res.addError(FieldRating, "rating must be a number")
		return
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(5)) {
		res.addError(FieldRating, "rating must be between 0 and 5")
		return
	}
	if !checkNumeric(FieldRating, d, ratingPrecision, res) {
		return
	}
	res.Fields.Rating = &d
}

// checkDiscountAgainstPrice сравнивает скидку с ценой после слияния с текущей записью
func (v *Validator) checkDiscountAgainstPrice(candidate, existing FieldMap, res *Result) {
	if _, failed := res.Errors[FieldDiscountPrice]; failed {
		return
	}
	if _, failed := res.Errors[FieldPrice]; failed {
		return
	}

	price, ok := mergedDecimal(FieldPrice, res.Fields.Price, res, existing)
	if !ok {
		return
	}
	discount, ok := mergedDecimal(FieldDiscountPrice, res.Fields.DiscountPrice, res, existing)
	if !ok {
		return
	}

	if discount.GreaterThanOrEqual(price) {
		res.addError(FieldDiscountPrice, msgDiscount)
	}
}

func mergedDecimal(field string, fromCandidate *decimal.Decimal, res *Result, existing FieldMap) (decimal.Decimal, bool) {
	if fromCandidate != nil {
		return *fromCandidate, true
	}
	if res.Fields.IsCleared(field) || existing == nil {
		return decimal.Decimal{}, false
	}
	raw, ok := existing[field]
	if !ok || raw == nil {
		return decimal.Decimal{}, false
	}
	return toDecimal(raw)
}

func (v *Validator) checkUnknownFields(candidate FieldMap, res *Result) {
	if !v.opts.Strict {
		return
	}

	keys := make([]string, 0, len(candidate))
	for k := range candidate {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if knownField(k) {
			continue
		}
		if _, ro := readOnlyFields[k]; ro {
			res.addError(k, "This field is read-only.")
			continue
		}
		res.addError(k, "Unknown field.")
	}
}

// checkNumeric проверяет, что число помещается в numeric(precision, 2) без округления
func checkNumeric(field string, d decimal.Decimal, precision int32, res *Result) bool {
	if !d.Equal(d.Round(decimalScale)) {
		res.addError(field, fmt.Sprintf("Ensure that there are no more than %d decimal places.", decimalScale))
		return false
	}
	if !d.Abs().LessThan(decimal.New(1, precision-decimalScale)) {
		res.addError(field, fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", precision-decimalScale))
		return false
	}
	return true
}
