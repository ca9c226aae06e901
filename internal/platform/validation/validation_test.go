package validation

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestIsPhone(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1234567890", true},
		{"(123) 456-7890", true},
		{"123-456-789", false},
		{"12345678901", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsPhone(tt.in); got != tt.want {
			t.Errorf("IsPhone(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsEmail(t *testing.T) {
	for _, ok := range []string{"john@smilecare.pro", "a.b@c.io"} {
		if !IsEmail(ok) {
			t.Errorf("expected %q to be valid", ok)
		}
	}
	for _, bad := range []string{"john", "john@", "john@host", "jo hn@host.com"} {
		if IsEmail(bad) {
			t.Errorf("expected %q to be invalid", bad)
		}
	}
}

func TestFieldErrors(t *testing.T) {
	fe := FieldErrors{}
	if fe.Err() != nil {
		t.Fatal("expected nil error for empty FieldErrors")
	}
	fe.Add("name", "Name is required")
	fe.Add("name", "ignored")
	fe.Add("contact", "bad")

	err := fe.Err()
	if err == nil {
		t.Fatal("expected error")
	}
	if fe["name"] != "Name is required" {
		t.Errorf("expected first message kept, got %q", fe["name"])
	}
	if got := err.Error(); got != "validation failed: contact: bad; name: Name is required" {
		t.Errorf("unexpected message %q", got)
	}

	wrapped := fmt.Errorf("create: %w", err)
	got, ok := AsFieldErrors(wrapped)
	if !ok || len(got) != 2 {
		t.Errorf("expected to unwrap FieldErrors, got %v %v", got, ok)
	}
}

func TestAmount(t *testing.T) {
	var form struct {
		Cost Amount `json:"cost"`
	}
	for _, body := range []string{`{"cost":120}`, `{"cost":"120"}`, `{"cost":" 120.0 "}`} {
		if err := json.Unmarshal([]byte(body), &form); err != nil {
			t.Fatalf("unmarshal %s: %v", body, err)
		}
		v, ok := form.Cost.Value()
		if !ok || v == nil || *v != 120 {
			t.Errorf("%s: expected 120, got %v %v", body, v, ok)
		}
	}

	if err := json.Unmarshal([]byte(`{"cost":null}`), &form); err != nil {
		t.Fatal(err)
	}
	if v, ok := form.Cost.Value(); !ok || v != nil {
		t.Errorf("expected empty amount, got %v %v", v, ok)
	}

	if _, ok := Amount("abc").Value(); ok {
		t.Error("expected abc to be rejected")
	}
	if _, ok := Amount("NaN").Value(); ok {
		t.Error("expected NaN to be rejected")
	}
}
