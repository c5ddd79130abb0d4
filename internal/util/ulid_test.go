package util

import (
	"strings"
	"testing"
)

func TestNewBroadcastID(t *testing.T) {
	a := NewBroadcastID()
	b := NewBroadcastID()

	if !strings.HasPrefix(a, "alert_") {
		t.Fatalf("id %q missing alert_ prefix", a)
	}
	if len(a) != len("alert_")+26 {
		t.Fatalf("id %q has unexpected length", a)
	}
	if a == b {
		t.Fatal("ids are not unique")
	}
	if a != strings.ToLower(a) {
		t.Fatalf("id %q not lowercase", a)
	}
}
