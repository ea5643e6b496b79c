package utils

import (
	"strings"
	"testing"
)

func TestGenerateJoinCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateJoinCode(JoinCodeLength)
		if err != nil {
			t.Fatalf("GenerateJoinCode failed: %v", err)
		}
		if len(code) != JoinCodeLength {
			t.Fatalf("code %q has length %d, want %d", code, len(code), JoinCodeLength)
		}
		for _, r := range code {
			if !strings.ContainsRune(joinCodeAlphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
		seen[code] = true
	}
	// 100 draws from a 31^6 space colliding down to a handful would mean
	// the generator is broken.
	if len(seen) < 90 {
		t.Errorf("only %d unique codes out of 100", len(seen))
	}
}

func TestGenerateJoinCodeDefaultsLength(t *testing.T) {
	code, err := GenerateJoinCode(0)
	if err != nil {
		t.Fatalf("GenerateJoinCode failed: %v", err)
	}
	if len(code) != JoinCodeLength {
		t.Errorf("code length = %d, want %d", len(code), JoinCodeLength)
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"host@example.com", false},
		{"host+tag@example.co.uk", false},
		{"", true},
		{"not-an-email", true},
		{"@example.com", true},
	}

	for _, tt := range tests {
		err := ValidateEmail(tt.email)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
		}
	}
}

func TestValidateNickname(t *testing.T) {
	tests := []struct {
		name     string
		nickname string
		wantErr  bool
	}{
		{name: "ok", nickname: "Cody"},
		{name: "minimum length", nickname: "Jo"},
		{name: "empty", nickname: "", wantErr: true},
		{name: "whitespace only", nickname: "   ", wantErr: true},
		{name: "single rune", nickname: "C", wantErr: true},
		{name: "too long", nickname: strings.Repeat("a", 33), wantErr: true},
		{name: "multibyte counts runes", nickname: "Zoë"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNickname(tt.nickname)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNickname(%q) error = %v, wantErr %v", tt.nickname, err, tt.wantErr)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidateEmail("")
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := err.Error(); got != "email: email is required" {
		t.Errorf("error string = %q", got)
	}
}

func TestJoinURL(t *testing.T) {
	url := JoinURL("http://localhost:8080", "ABC234", "")
	if url != "http://localhost:8080/join/ABC234" {
		t.Errorf("JoinURL = %q", url)
	}

	withBypass := JoinURL("http://localhost:8080/", "ABC234", "secret value")
	if withBypass != "http://localhost:8080/join/ABC234?bypass=secret+value" {
		t.Errorf("JoinURL with bypass = %q", withBypass)
	}
}
