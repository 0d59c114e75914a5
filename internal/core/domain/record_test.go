package domain

import "testing"

func TestDecodeRecord(t *testing.T) {
	tests := []struct {
		name     string
		chunk    string
		wantOK   bool
		wantText string
	}{
		{
			name:     "valid record",
			chunk:    `{"id":"1","text":"hello"}`,
			wantOK:   true,
			wantText: "hello",
		},
		{
			name:   "blank keepalive",
			chunk:  "\r\n",
			wantOK: false,
		},
		{
			name:   "empty chunk",
			chunk:  "",
			wantOK: false,
		},
		{
			name:   "non-json noise",
			chunk:  "ping",
			wantOK: false,
		},
		{
			name:   "json but not an object",
			chunk:  `[1,2,3]`,
			wantOK: false,
		},
		{
			name:   "truncated object",
			chunk:  `{"id":"1","text":`,
			wantOK: false,
		},
		{
			name:     "object with surrounding whitespace",
			chunk:    "  {\"text\":\"padded\"}\r\n",
			wantOK:   true,
			wantText: "padded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := DecodeRecord([]byte(tt.chunk))
			if ok != tt.wantOK {
				t.Fatalf("DecodeRecord(%q) ok = %v, want %v", tt.chunk, ok, tt.wantOK)
			}
			if ok && rec.Text != tt.wantText {
				t.Errorf("DecodeRecord(%q) text = %q, want %q", tt.chunk, rec.Text, tt.wantText)
			}
		})
	}
}

func TestSanitizeDisplay(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{
			name:     "newline, mention and tag",
			in:       "Hello\n@world #tag",
			expected: "Hello  world  tag",
		},
		{
			name:     "carriage return",
			in:       "a\r\nb",
			expected: "a  b",
		},
		{
			name:     "clean text unchanged",
			in:       "plain text",
			expected: "plain text",
		},
		{
			name:     "empty",
			in:       "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeDisplay(tt.in)
			if got != tt.expected {
				t.Errorf("SanitizeDisplay(%q) = %q, want %q", tt.in, got, tt.expected)
			}
			// Sanitization must be idempotent.
			if again := SanitizeDisplay(got); again != got {
				t.Errorf("SanitizeDisplay not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestTerminationCauseCategory(t *testing.T) {
	tests := []struct {
		name     string
		cause    TerminationCause
		expected Category
		fatal    bool
	}{
		{"self timeout", SelfTimeout(), CategorySelfTimeout, false},
		{"network timeout", NetworkTimeout(nil), CategoryNetworkTimeout, false},
		{"fatal transport", FatalTransport(nil), CategoryFatal, true},
		{"status 304", HTTPStatus(304), CategoryBackoffSignal, false},
		{"status 420", HTTPStatus(420), CategoryRateLimited, false},
		{"status 429", HTTPStatus(429), CategoryRateLimited, false},
		{"status 500", HTTPStatus(500), CategoryServerError, false},
		{"status 502", HTTPStatus(502), CategoryServerError, false},
		{"status 503", HTTPStatus(503), CategoryServerError, false},
		{"status 504", HTTPStatus(504), CategoryServerError, false},
		{"status 451 unclassified", HTTPStatus(451), CategoryFatal, true},
		{"status 403 unclassified", HTTPStatus(403), CategoryFatal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cause.Category(); got != tt.expected {
				t.Errorf("Category() = %q, want %q", got, tt.expected)
			}
			if got := tt.cause.Fatal(); got != tt.fatal {
				t.Errorf("Fatal() = %v, want %v", got, tt.fatal)
			}
		})
	}
}
