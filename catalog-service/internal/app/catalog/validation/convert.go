package validation

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Dimensions размеры товара в сантиметрах
type Dimensions struct {
	Length float64
	Width  float64
	Height float64
}

// ParseDimensions разбирает строку вида "LxWxH", каждая часть должна быть числом
func ParseDimensions(s string) (Dimensions, bool) {
	parts := strings.Split(strings.TrimSpace(s), "x")
	if len(parts) != 3 {
		return Dimensions{}, false
	}

	var vals [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Dimensions{}, false
		}
		vals[i] = f
	}
	return Dimensions{Length: vals[0], Width: vals[1], Height: vals[2]}, true
}

// NormalizeTags обрезает пробелы и удаляет пустые теги
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// toDecimal принимает числа JSON (json.Number или float64), целые Go типы,
// decimal.Decimal и строки с десятичным числом
func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case *decimal.Decimal:
		if n == nil {
			return decimal.Decimal{}, false
		}
		return *n, true
	case decimal.NullDecimal:
		return n.Decimal, n.Valid
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		return d, err == nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(n), true
	case float32:
		return toDecimal(float64(n))
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	}
	return decimal.Decimal{}, false
}

// toInt принимает только целые значения: json.Number без дробной части,
// целые Go типы и float64 с нулевой дробной частью
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil || i > math.MaxInt32 || i < math.MinInt32 {
			return 0, false
		}
		return int(i), true
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		if n > math.MaxInt32 || n < math.MinInt32 {
			return 0, false
		}
		return int(n), true
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
