package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		name      string
		validator func(string) error
		input     string
		wantErr   bool
	}{
		{"Matches", ValidateMatches("libc6"), "libc6", false},
		{"MatchesTrimmed", ValidateMatches("libc6"), " libc6 ", false},
		{"MatchesWrong", ValidateMatches("libc6"), "libc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validator(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("%s(%q) error = %v, wantErr %v", tt.name, tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateMatchesMessage(t *testing.T) {
	err := ValidateMatches("libc6")("nope")
	assert.EqualError(t, err, `type "libc6" to continue`)
}
