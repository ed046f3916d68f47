package ocr

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"shorter than budget", "hello", 10, "hello"},
		{"exact budget", "hello", 5, "hello"},
		{"longer than budget", "hello world", 5, "hello"},
		{"zero budget", "hello", 0, ""},
		{"negative budget", "hello", -1, ""},
		{"empty input", "", 600, ""},
		{"multibyte runes kept whole", "héllo wörld", 7, "héllo w"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			if tt.n >= 0 {
				assert.LessOrEqual(t, len([]rune(got)), tt.n)
			}

			// Idempotent: truncating the result again changes nothing.
			assert.Equal(t, got, Truncate(got, tt.n))
		})
	}
}

func TestBinarizeTwoTone(t *testing.T) {
	// Dark "ink" on a light background must separate cleanly into 0/255.
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if x < 3 {
				img.SetGray(x, y, color.Gray{Y: 40}) // foreground
			} else {
				img.SetGray(x, y, color.Gray{Y: 220}) // background
			}
		}
	}

	out := Binarize(img)

	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			v := out.GrayAt(x, y).Y
			if x < 3 {
				assert.Equal(t, uint8(0), v, "foreground pixel (%d,%d)", x, y)
			} else {
				assert.Equal(t, uint8(255), v, "background pixel (%d,%d)", x, y)
			}
		}
	}
}

func TestBinarizeNonGrayInput(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if x < 2 {
				img.Set(x, y, color.RGBA{R: 10, G: 10, B: 10, A: 255})
			} else {
				img.Set(x, y, color.RGBA{R: 240, G: 240, B: 240, A: 255})
			}
		}
	}

	out := Binarize(img)

	assert.Equal(t, uint8(0), out.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), out.GrayAt(3, 3).Y)
}

func TestOtsuThresholdUniformImage(t *testing.T) {
	// A uniform image has no inter-class variance to maximize; the
	// threshold must still be a valid value and not panic.
	img := image.NewGray(image.Rect(0, 0, 5, 5))
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			img.SetGray(x, y, color.Gray{Y: 128})
		}
	}
	_ = otsuThreshold(img)
}
