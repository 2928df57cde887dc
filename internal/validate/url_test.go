package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestURL(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		constraints URLConstraints
		wantErr     bool
		errType     error
	}{
		{
			name:        "valid HTTPS URL",
			input:       "https://example.com/path",
			constraints: URLConstraints{AllowedSchemes: []string{"https"}},
		},
		{
			name:        "valid HTTP URL",
			input:       "http://example.com",
			constraints: URLConstraints{AllowedSchemes: []string{"http", "https"}},
		},
		{
			name:        "empty URL",
			input:       "",
			constraints: URLConstraints{AllowedSchemes: []string{"https"}},
			wantErr:     true,
			errType:     ErrEmpty,
		},
		{
			name:        "disallowed scheme",
			input:       "ftp://example.com",
			constraints: URLConstraints{AllowedSchemes: []string{"https"}},
			wantErr:     true,
			errType:     ErrDisallowedScheme,
		},
		{
			name:  "URL too long",
			input: "https://example.com/" + strings.Repeat("a", 2048),
			constraints: URLConstraints{
				AllowedSchemes: []string{"https"},
				MaxLength:      2048,
			},
			wantErr: true,
			errType: ErrStringTooLong,
		},
		{
			name:  "domain allowlist - subdomain allowed",
			input: "https://m.youtube.com/watch?v=abc",
			constraints: URLConstraints{
				AllowedSchemes: []string{"https"},
				AllowedDomains: []string{"youtube.com"},
			},
		},
		{
			name:  "domain allowlist - blocked",
			input: "https://evil.com/malware",
			constraints: URLConstraints{
				AllowedSchemes: []string{"https"},
				AllowedDomains: []string{"youtube.com"},
			},
			wantErr: true,
			errType: ErrDisallowedDomain,
		},
		{
			name:        "missing hostname",
			input:       "https:///path",
			constraints: URLConstraints{AllowedSchemes: []string{"https"}},
			wantErr:     true,
			errType:     ErrInvalidURL,
		},
		{
			name:        "unparseable",
			input:       "http://[::1",
			constraints: URLConstraints{},
			wantErr:     true,
			errType:     ErrInvalidURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := URL(tt.input, tt.constraints)
			if (err != nil) != tt.wantErr {
				t.Fatalf("URL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.errType != nil && !errors.Is(err, tt.errType) {
				t.Errorf("expected error %v, got %v", tt.errType, err)
			}
			if !tt.wantErr && got == "" {
				t.Errorf("URL() returned empty string for valid input")
			}
		})
	}
}

func TestMediaLink(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "youtube link", input: "https://www.youtube.com/watch?v=chwyjJbcs1Y", want: "https://www.youtube.com/watch?v=chwyjJbcs1Y"},
		{name: "single label host", input: "http://x", want: "http://x"},
		{name: "surrounding whitespace trimmed", input: "  https://example.com  ", want: "https://example.com"},
		{name: "uppercase scheme", input: "HTTPS://example.com", want: "HTTPS://example.com"},
		{name: "no scheme", input: "youtube.com/watch", wantErr: true},
		{name: "not a url", input: "not a link", wantErr: true},
		{name: "javascript scheme", input: "javascript:alert(1)", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MediaLink(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MediaLink() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
