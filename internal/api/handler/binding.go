package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

var errHoursNotNumber = errors.New("duration_hours must be a number")

// hours decodes a JSON number or a numeric string such as "3".
// Form-driven clients send durations as strings.
type hours float64

func (h *hours) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}
	if s, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(s)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return errHoursNotNumber
	}
	*h = hours(f)
	return nil
}

// bindError turns a c.Bind failure into a 400 that names the offending field
// when the decoder reports one.
func bindError(err error) error {
	if errors.Is(err, errHoursNotNumber) {
		return echo.NewHTTPError(http.StatusBadRequest, errHoursNotNumber.Error())
	}
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) && te.Field != "" {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s must be %s", te.Field, jsonKind(te.Type)))
	}
	return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "a valid value"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Slice, reflect.Array:
		return "a list"
	case reflect.Struct, reflect.Map:
		return "an object"
	default:
		return "a valid value"
	}
}
