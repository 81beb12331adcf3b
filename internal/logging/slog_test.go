package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{})
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug record written at info level: %s", buf.String())
	}

	buf.Reset()
	logger = New(&buf, Options{Debug: true})
	logger.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("debug record missing at debug level")
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, Options{Format: "JSON"}).Info("hello", Operation("stats.aggregate"))
	out := buf.String()
	if !strings.HasPrefix(out, "{") || !strings.Contains(out, `"operation":"stats.aggregate"`) {
		t.Errorf("unexpected JSON output: %s", out)
	}
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{})
	logger = WithOperation(logger, "auth")
	logger = WithProvider(logger, "gmail")
	logger = WithAccount(logger, "work")
	logger.Info("done")

	out := buf.String()
	for _, want := range []string{"operation=auth", "provider=gmail", "account=work"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestAttrs(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantKey string
		value   string
	}{
		{"operation", Operation("op").Key, KeyOperation, Operation("op").Value.String()},
		{"provider", Provider("imap").Key, KeyProvider, Provider("imap").Value.String()},
		{"account", Account("work").Key, KeyAccount, Account("work").Value.String()},
		{"message id", MessageID("abc").Key, KeyMessageID, MessageID("abc").Value.String()},
		{"tool", Tool("contact_stats").Key, KeyTool, Tool("contact_stats").Value.String()},
		{"status", Status(StatusSuccess).Key, KeyStatus, Status(StatusSuccess).Value.String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.key, tt.wantKey)
			}
			if tt.value == "" {
				t.Error("value should not be empty")
			}
		})
	}

	if got := Count(3).Value.Int64(); got != 3 {
		t.Errorf("Count value = %d, want 3", got)
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("boom"))
	if attr.Key != KeyError || attr.Value.String() != "boom" {
		t.Errorf("Err = %v", attr)
	}

	attr = Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty", attr.Key)
	}
}

func TestAnonymizeEmail(t *testing.T) {
	if got := AnonymizeEmail(""); got != "" {
		t.Errorf("AnonymizeEmail(\"\") = %q, want empty", got)
	}

	got := AnonymizeEmail("alice@example.com")
	if !strings.HasPrefix(got, "addr:") {
		t.Errorf("AnonymizeEmail prefix = %q", got)
	}
	if len(got) != len("addr:")+16 {
		t.Errorf("AnonymizeEmail length = %d, want %d", len(got), len("addr:")+16)
	}
	if strings.Contains(got, "alice") {
		t.Error("AnonymizeEmail leaked the address")
	}
	if got != AnonymizeEmail("Alice@Example.com") {
		t.Error("AnonymizeEmail should be case-insensitive")
	}
	if AddressHash("alice@example.com").Value.String() != got {
		t.Error("AddressHash should use AnonymizeEmail")
	}
}

func TestSanitizeSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "<empty>"},
		{"abc", "[secret:3 chars]"},
		{"0123456789ab", "[secret:12 chars]"},
	}
	for _, tt := range tests {
		if got := SanitizeSecret(tt.in); got != tt.want {
			t.Errorf("SanitizeSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice@example.com", "example.com"},
		{"", ""},
		{"invalid", ""},
		{"a@b@c", ""},
	}
	for _, tt := range tests {
		if got := ExtractDomain(tt.in); got != tt.want {
			t.Errorf("ExtractDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if Domain("bob@x.org").Value.String() != "x.org" {
		t.Error("Domain attribute mismatch")
	}
}
