package detector

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSupported(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"face.jpg", true},
		{"face.JPG", true},
		{"face.jpeg", true},
		{"face.JpEg", true},
		{"face.png", true},
		{"face.PNG", true},
		{"face.gif", false},
		{"notes.txt", false},
		{"jpg", false},
		{"archive.jpg.zip", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSupported(tt.name))
		})
	}
}

func TestFunc(t *testing.T) {
	var got string
	d := Func(func(path string) (int, error) {
		got = path
		return 3, nil
	})

	n, err := d.Detect("a.png")
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "a.png", got)
}

func TestUnreadable(t *testing.T) {
	err := Unreadable("/tmp/x.jpg", fs.ErrNotExist)
	assert.True(t, errors.Is(err, ErrUnreadableImage))
	assert.Contains(t, err.Error(), "/tmp/x.jpg")

	err = Unreadable("/tmp/y.jpg", nil)
	assert.ErrorIs(t, err, ErrUnreadableImage)
	assert.Contains(t, err.Error(), "/tmp/y.jpg")
}
