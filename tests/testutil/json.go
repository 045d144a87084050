package testutil

import (
	"encoding/json"
	"fmt"
	"testing"
)

// ParseJSONOutput parses JSON array output into []map[string]interface{}.
func ParseJSONOutput(t *testing.T, output string) []map[string]interface{} {
	t.Helper()

	var result []map[string]interface{}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("failed to parse JSON array: %v\noutput: %s", err, output)
	}
	return result
}

// ParseJSONObject parses single JSON object output.
func ParseJSONObject(t *testing.T, output string) map[string]interface{} {
	t.Helper()

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("failed to parse JSON object: %v\noutput: %s", err, output)
	}
	return result
}

// ShowMob returns the parsed mob by running mobproto show --json.
func ShowMob(t *testing.T, dir, vnum string) map[string]interface{} {
	t.Helper()

	result := MustSucceedInDir(t, dir, "show", vnum, "--json")
	return ParseJSONObject(t, result.Stdout)
}

// QueryMobs returns parsed mobs by running mobproto query --json with args.
func QueryMobs(t *testing.T, dir string, args ...string) []map[string]interface{} {
	t.Helper()

	result := MustSucceedInDir(t, dir, append([]string{"query", "--json"}, args...)...)
	return ParseJSONOutput(t, result.Stdout)
}

// GetField extracts a field from a parsed JSON object as a string.
// Whole numbers are printed without a fractional part and null is "".
func GetField(obj map[string]interface{}, key string) string {
	switch v := obj[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// GetNestedField extracts a nested map field from a parsed JSON object.
// Returns nil if the field doesn't exist or is not a map.
func GetNestedField(obj map[string]interface{}, key string) map[string]interface{} {
	if nested, ok := obj[key].(map[string]interface{}); ok {
		return nested
	}
	return nil
}
