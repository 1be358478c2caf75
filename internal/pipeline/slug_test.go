package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name   string
		levels []string
		want   string
	}{
		{"single", []string{"Elektronik"}, "elektronik"},
		{"two levels", []string{"Elektronik", "HP"}, "elektronik-hp"},
		{"spaces and symbols", []string{"Rumah & Dapur", "Alat Makan"}, "rumah-dapur-alat-makan"},
		{"leading and trailing junk", []string{"  --Buku!! "}, "buku"},
		{"digits kept", []string{"Mainan", "Usia 3+"}, "mainan-usia-3"},
		{"empty level dropped", []string{"Fashion", "!!!", "Tas"}, "fashion-tas"},
		{"non ascii collapsed", []string{"Café Crème"}, "caf-cr-me"},
		{"nothing left", []string{"***"}, ""},
		{"no levels", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.levels))
		})
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Elektronik > HP > Android", DisplayName([]string{"Elektronik", "HP", "Android"}))
	assert.Equal(t, "", DisplayName(nil))
}
