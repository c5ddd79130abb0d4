package model

import (
	"strings"
	"testing"
)

func TestNewDeliveryOutcomeMasksRecipient(t *testing.T) {
	o := NewDeliveryOutcome("+919876543210", DeliveryFailed, 3, "recipient blocked")
	if strings.Contains(o.Recipient, "876543") {
		t.Fatalf("outcome leaked phone digits: %q", o.Recipient)
	}
	if o.Recipient != "+91******3210" {
		t.Fatalf("unexpected masked recipient %q", o.Recipient)
	}
	if o.Attempts != 3 || o.Error != "recipient blocked" {
		t.Fatalf("unexpected outcome %+v", o)
	}
}

func TestBroadcastReportMerge(t *testing.T) {
	r := BroadcastReport{UsersTargeted: 3}
	r.Merge(NewDeliveryOutcome("+919876543210", DeliveryDelivered, 1, ""))
	r.Merge(NewDeliveryOutcome("+919876543211", DeliveryFailed, 3, "timeout"))
	r.Merge(NewDeliveryOutcome("+919876543212", DeliveryRateLimited, 3, "rate limited"))

	if r.Successful != 1 || r.Failed != 2 {
		t.Fatalf("got %d successful / %d failed, want 1/2", r.Successful, r.Failed)
	}
	if r.Successful+r.Failed != r.UsersTargeted {
		t.Fatalf("counting invariant broken: %d + %d != %d", r.Successful, r.Failed, r.UsersTargeted)
	}
	if len(r.Errors) != 2 {
		t.Fatalf("got %d errors, want 2", len(r.Errors))
	}
	for _, e := range r.Errors {
		if strings.Contains(e, "876543") {
			t.Errorf("error entry leaked phone digits: %q", e)
		}
	}
}
