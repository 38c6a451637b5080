package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		input   string
		owner   string
		name    string
		wantErr bool
	}{
		{input: "octo/app", owner: "octo", name: "app"},
		{input: "https://github.com/octo/app", owner: "octo", name: "app"},
		{input: "https://github.com/octo/app.git", owner: "octo", name: "app"},
		{input: "git@github.com:octo/app.git", owner: "octo", name: "app"},
		{input: " octo/app/ ", owner: "octo", name: "app"},
		{input: "https://gitlab.com/octo/app", wantErr: true},
		{input: "octo", wantErr: true},
		{input: "octo/app/tree/main", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			owner, name, err := ParseRepoURL(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.owner, owner)
			assert.Equal(t, tt.name, name)
		})
	}
}
