package imagerules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateImage(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name  string
		file  File
		valid bool
		msg   string
	}{
		{"png ok", File{Name: "a.png", Type: "image/png", Size: 1024}, true, ""},
		{"uppercase mime ok", File{Type: "IMAGE/JPEG", Size: 1}, true, ""},
		{"exactly max", File{Type: "image/webp", Size: DefaultMaxSize}, true, ""},
		{"pdf rejected", File{Type: "application/pdf", Size: 10}, false, "Invalid file type"},
		{"missing type", File{Size: 10}, false, "Invalid file type"},
		{"too large", File{Type: "image/png", Size: DefaultMaxSize + 1}, false, "File too large"},
		{"empty", File{Type: "image/gif", Size: 0}, false, "File is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateImage(tt.file, rules)
			assert.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.Empty(t, got.Error)
			} else {
				assert.Contains(t, got.Error, tt.msg)
			}
		})
	}
}

func TestValidateImage_CustomRules(t *testing.T) {
	rules := Rules{AllowedTypes: []string{"image/png"}, MaxSize: 100}

	assert.False(t, ValidateImage(File{Type: "image/jpeg", Size: 10}, rules).Valid)
	got := ValidateImage(File{Type: "image/png", Size: 101}, rules)
	assert.False(t, got.Valid)
	assert.Equal(t, "File too large. Maximum size: 100B", got.Error)
}

func TestValidateImage_MessageListsTypes(t *testing.T) {
	got := ValidateImage(File{Type: "text/plain", Size: 1}, DefaultRules())
	assert.Equal(t, "Invalid file type. Allowed: JPEG, PNG, GIF, WEBP", got.Error)
}
