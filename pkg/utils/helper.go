package utils

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/go-querystring/query"
)

// FormatObject renders obj as indented JSON for the file log. Struct fields
// are keyed by their json name; a `log:"-"` tag drops the field and
// `log:"secret"` masks it.
func FormatObject(obj interface{}) (string, error) {
	v := reflect.ValueOf(obj)
	if v.Kind() == reflect.Ptr && !v.IsNil() {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		jsonOutput, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return "", err
		}
		return string(jsonOutput), nil
	}

	loggableMap := make(map[string]interface{})
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		fieldType := t.Field(i)
		if !fieldType.IsExported() {
			continue
		}
		name := logFieldName(fieldType)
		switch fieldType.Tag.Get("log") {
		case "-":
			continue
		case "secret":
			loggableMap[name] = MaskSecret(fmt.Sprint(v.Field(i).Interface()))
			continue
		}
		loggableMap[name] = v.Field(i).Interface()
	}

	jsonOutput, err := json.MarshalIndent(loggableMap, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonOutput), nil
}

func logFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

func EncodeURLParams(params interface{}) (string, error) {
	v, err := query.Values(params)
	if err != nil {
		return "", fmt.Errorf("failed to encode url param: %w", err)
	}
	return v.Encode(), nil
}

func BeautifyJSON(data []byte) string {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return string(data)
	}
	pretty, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return string(data)
	}
	return string(pretty)
}

// Truncate cuts value to at most max runes and marks the cut with "...".
func Truncate(value string, max int) string {
	runes := []rune(value)
	if max <= 0 || len(runes) <= max {
		return value
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// MaskSecret keeps the first and last few characters of a secret for logs.
func MaskSecret(value string) string {
	runes := []rune(value)
	if len(runes) <= 8 {
		return "****"
	}
	return string(runes[:4]) + "****" + string(runes[len(runes)-4:])
}
