package util

import (
	"reflect"
	"testing"
)

func TestSplitCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single value",
			input:    "order_id",
			expected: []string{"order_id"},
		},
		{
			name:     "multiple values",
			input:    "order_id,created_at,updated_at",
			expected: []string{"order_id", "created_at", "updated_at"},
		},
		{
			name:     "with whitespace",
			input:    " order_id , created_at ",
			expected: []string{"order_id", "created_at"},
		},
		{
			name:     "trailing comma",
			input:    "foo,bar,",
			expected: []string{"foo", "bar"},
		},
		{
			name:     "leading comma",
			input:    ",foo,bar",
			expected: []string{"foo", "bar"},
		},
		{
			name:     "multiple commas",
			input:    "foo,,bar",
			expected: []string{"foo", "bar"},
		},
		{
			name:     "only commas",
			input:    ",,,",
			expected: nil,
		},
		{
			name:     "only whitespace",
			input:    "   ",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SplitCSV(tt.input)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("SplitCSV(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		path     string
		expected string
	}{
		{
			name:     "no slashes",
			prefix:   "https://old.example.com/media",
			path:     "artworks/abc.jpg",
			expected: "https://old.example.com/media/artworks/abc.jpg",
		},
		{
			name:     "trailing slash on prefix",
			prefix:   "https://old.example.com/media/",
			path:     "artworks/abc.jpg",
			expected: "https://old.example.com/media/artworks/abc.jpg",
		},
		{
			name:     "leading slash on path",
			prefix:   "https://old.example.com/media",
			path:     "/artworks/abc.jpg",
			expected: "https://old.example.com/media/artworks/abc.jpg",
		},
		{
			name:     "both slashes",
			prefix:   "https://old.example.com/media/",
			path:     "/artworks/abc.jpg",
			expected: "https://old.example.com/media/artworks/abc.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinURL(tt.prefix, tt.path); got != tt.expected {
				t.Errorf("JoinURL(%q, %q) = %q, want %q", tt.prefix, tt.path, got, tt.expected)
			}
		})
	}
}
