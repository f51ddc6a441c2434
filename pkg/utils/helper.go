package utils

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/go-querystring/query"
)

// FindBetween returns the substring of s strictly between the first occurrence
// of first and the following occurrence of last, or "" when either marker is
// missing.
func FindBetween(s, first, last string) string {
	start := strings.Index(s, first)
	if start < 0 {
		return ""
	}
	start += len(first)
	end := strings.Index(s[start:], last)
	if end < 0 {
		return ""
	}
	return s[start : start+end]
}

// AnswerCode computes the this-or-that answer checksum: the sum of the option
// title's character codes plus the value of the last two hex digits of the
// page-supplied encoding key.
func AnswerCode(key, option string) (string, error) {
	if len(key) < 2 {
		return "", fmt.Errorf("encode key too short: %q", key)
	}
	t := 0
	for _, r := range option {
		t += int(r)
	}
	salt, err := strconv.ParseInt(key[len(key)-2:], 16, 64)
	if err != nil {
		return "", fmt.Errorf("invalid encode key suffix: %w", err)
	}
	t += int(salt)
	return strconv.Itoa(t), nil
}

// RandomRange returns a uniform integer in [min, max]. Falls back to min when
// the bounds are degenerate or entropy is unavailable.
func RandomRange(min, max int) int {
	if max <= min {
		return min
	}
	delta := max - min + 1
	val, err := rand.Int(rand.Reader, big.NewInt(int64(delta)))
	if err != nil {
		return min
	}
	return min + int(val.Int64())
}

func FormatObject(obj interface{}) (string, error) {
	loggableMap := make(map[string]interface{})

	v := reflect.ValueOf(obj)

	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		jsonOutput, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return "", err
		}
		return string(jsonOutput), nil
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Func {
			loggableMap[fieldType.Name] = "<function>"
			continue
		}

		if field.CanInterface() {
			loggableMap[fieldType.Name] = field.Interface()
		}
	}

	jsonOutput, err := json.MarshalIndent(loggableMap, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonOutput), nil
}

// EncodeURLParams encodes a struct with `url` tags into a query string.
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
