package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_INT", "nope")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 7 {
		t.Fatalf("want=7 got=%d", got)
	}
	t.Setenv("ENVUTIL_TEST_INT", " 12 ")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 12 {
		t.Fatalf("want=12 got=%d", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_BOOL", "off")
	if Bool("ENVUTIL_TEST_BOOL", true) {
		t.Fatalf("want=false")
	}
	t.Setenv("ENVUTIL_TEST_BOOL", "maybe")
	if !Bool("ENVUTIL_TEST_BOOL", true) {
		t.Fatalf("want default true")
	}
}

func TestSeconds(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_SECS", "0")
	if got := Seconds("ENVUTIL_TEST_SECS", time.Minute); got != time.Minute {
		t.Fatalf("want=1m got=%s", got)
	}
	t.Setenv("ENVUTIL_TEST_SECS", "30")
	if got := Seconds("ENVUTIL_TEST_SECS", time.Minute); got != 30*time.Second {
		t.Fatalf("want=30s got=%s", got)
	}
	if got := Float("ENVUTIL_TEST_MISSING", 0.5); got != 0.5 {
		t.Fatalf("want=0.5 got=%v", got)
	}
	if got := String("ENVUTIL_TEST_MISSING", "x"); got != "x" {
		t.Fatalf("want=x got=%q", got)
	}
}
