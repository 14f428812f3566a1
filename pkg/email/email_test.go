package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveGreeting(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jane.doe@example.com", "Jane Doe"},
		{"bob@example.com", "Bob"},
		{"first_middle-last@example.com", "First Middle Last"},
		{"user+tag@example.com", "User Tag"},
		{"@example.com", "Customer"},
		{"", "Customer"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveGreeting(tt.email), "email %q", tt.email)
	}
}
