//go:build dev

package config

import (
	"os"
	"testing"
	"time"
)

// adds our test values, when this file is included with go -tags
func init() {
	defaultValues["_TEST_INT_VALUE"] = 10
	defaultValues["_TEST_STR_VALUE"] = "AAA"
	defaultValues["_TEST_BOOL_VALUE"] = false
	defaultValues["_TEST_DURATION_VALUE"] = "90s"
}

// Test string value type
func TestString(t *testing.T) {

	// test: unset potential env var, this should return the Str value in defaultValue[map]
	os.Unsetenv("_TEST_STR_VALUE")
	if "AAA" != StringValue("_TEST_STR_VALUE") {
		t.Errorf("AAA does not match %v", StringValue("_TEST_STR_VALUE"))
	}

	// test: now override the defaultValue[map] using an env var value
	t.Setenv("_TEST_STR_VALUE", "hello")
	if "hello" != StringValue("_TEST_STR_VALUE") {
		t.Errorf("hello does not match %v", StringValue("_TEST_STR_VALUE"))
	}
}

// Test int value type
func TestInt(t *testing.T) {

	os.Unsetenv("_TEST_INT_VALUE")
	if 10 != IntValue("_TEST_INT_VALUE") {
		t.Errorf("10 does not match %v", IntValue("_TEST_INT_VALUE"))
	}

	t.Setenv("_TEST_INT_VALUE", "20")
	if 20 != IntValue("_TEST_INT_VALUE") {
		t.Errorf("20 does not match %v", IntValue("_TEST_INT_VALUE"))
	}

	// test: now we use a non-int env var, which should be ignored
	t.Setenv("_TEST_INT_VALUE", ";")
	if 10 != IntValue("_TEST_INT_VALUE") {
		t.Errorf("10 does not match %v", IntValue("_TEST_INT_VALUE"))
	}
}

// Test bool value type
func TestBool(t *testing.T) {

	os.Unsetenv("_TEST_BOOL_VALUE")
	if false != BoolValue("_TEST_BOOL_VALUE") {
		t.Errorf("false does not match %v", BoolValue("_TEST_BOOL_VALUE"))
	}

	t.Setenv("_TEST_BOOL_VALUE", "true")
	if true != BoolValue("_TEST_BOOL_VALUE") {
		t.Errorf("true does not match %v", BoolValue("_TEST_BOOL_VALUE"))
	}

	t.Setenv("_TEST_BOOL_VALUE", "hello")
	if false != BoolValue("_TEST_BOOL_VALUE") {
		t.Errorf("false does not match %v", BoolValue("_TEST_BOOL_VALUE"))
	}
}

func TestDuration(t *testing.T) {

	os.Unsetenv("_TEST_DURATION_VALUE")
	if 90*time.Second != DurationValue("_TEST_DURATION_VALUE") {
		t.Errorf("90s does not match %v", DurationValue("_TEST_DURATION_VALUE"))
	}

	t.Setenv("_TEST_DURATION_VALUE", "2h")
	if 2*time.Hour != DurationValue("_TEST_DURATION_VALUE") {
		t.Errorf("2h does not match %v", DurationValue("_TEST_DURATION_VALUE"))
	}

	t.Setenv("_TEST_DURATION_VALUE", "soon")
	if 90*time.Second != DurationValue("_TEST_DURATION_VALUE") {
		t.Errorf("90s does not match %v", DurationValue("_TEST_DURATION_VALUE"))
	}
}

func TestGetEnvVar(t *testing.T) {

	t.Setenv("_TEST_STR_NEW", "isset")
	if "isset" != getEnvVar("_TEST_STR_NEW", "isset") {
		t.Errorf("isset does not match %v", getEnvVar("_TEST_STR_NEW", "isset"))
	}
	os.Unsetenv("_TEST_STR_NEW")

	// test: when no env var exists we should use the fallback value in 2nd arg
	if "fallback" != getEnvVar("_TEST_STR_NEW", "fallback") {
		t.Errorf("fallback does not match %v", getEnvVar("_TEST_STR_NEW", "fallback"))
	}

	// test: we don't convert unknown types, so the fallback wins
	t.Setenv("TEST_UNKNOWN", "2.2")
	if 1.1 != getEnvVar("TEST_UNKNOWN", 1.1) {
		t.Errorf("1.1 does not match %v", getEnvVar("TEST_UNKNOWN", 1.1))
	}
}
