package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"postgresql://u:p@db:5432/app", "postgres://u:p@db:5432/app?sslmode=disable"},
		{"postgres://u@db/app?connect_timeout=5", "postgres://u@db/app?connect_timeout=5&sslmode=disable"},
		{"postgres://u@db/app?sslmode=require", "postgres://u@db/app?sslmode=require"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeURL(tt.in), tt.in)
	}
}

func TestLearningLibrary(t *testing.T) {
	lib := LearningLibrary()

	assert.Len(t, lib, len(LearningArticles))
	seen := map[string]bool{}
	for _, l := range lib {
		assert.NotEmpty(t, l.Category)
		assert.False(t, seen[l.Title], "duplicate title %q", l.Title)
		seen[l.Title] = true
	}
}
