package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformGrid(height, width int, value uint8) [][]uint8 {
	rows := make([][]uint8, height)
	for y := range rows {
		rows[y] = make([]uint8, width)
		for x := range rows[y] {
			rows[y][x] = value
		}
	}
	return rows
}

func TestPreprocessOptionsFromJSON(t *testing.T) {
	t.Run("defaults on empty payload", func(t *testing.T) {
		options, err := PreprocessOptionsFromJSON(nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultPreprocessOptions(), options)
	})

	t.Run("overrides", func(t *testing.T) {
		options, err := PreprocessOptionsFromJSON([]byte(`{"dpi": 200, "denoise": false}`))
		require.NoError(t, err)
		assert.Equal(t, 200, options.DPI)
		assert.False(t, options.Denoise)
		assert.True(t, options.Grayscale)
		assert.True(t, options.Deskew)
	})
}

func TestPreprocessDenoisePreservesUniformRegions(t *testing.T) {
	doc := &Document{Pages: []Page{{Index: 0, Pixels: uniformGrid(4, 4, 200)}}}
	report := Preprocess(doc, PreprocessOptions{DPI: 300, Denoise: true})

	assert.Equal(t, uniformGrid(4, 4, 200), doc.Pages[0].Pixels,
		"a mean filter must not change a flat region")
	assert.Contains(t, report.Applied, "page 0: denoise")
	assert.Equal(t, 300, doc.Pages[0].DPI)
}

func TestPreprocessDenoiseSmoothsSpike(t *testing.T) {
	pixels := uniformGrid(3, 3, 0)
	pixels[1][1] = 255
	doc := &Document{Pages: []Page{{Index: 0, Pixels: pixels}}}
	Preprocess(doc, PreprocessOptions{Denoise: true})

	center := doc.Pages[0].Pixels[1][1]
	assert.Less(t, int(center), 255, "isolated spike must be attenuated")
	assert.Equal(t, uint8(255/9), center)
}

func TestPreprocessSkipsTextPages(t *testing.T) {
	doc := &Document{Pages: []Page{{Index: 0, TextLines: []string{"hello"}}}}
	report := Preprocess(doc, DefaultPreprocessOptions())

	assert.Empty(t, report.Applied)
	assert.Empty(t, doc.Pages[0].Warnings)
	assert.Zero(t, doc.Pages[0].DPI)
}

func TestPreprocessDeskewFlagsPage(t *testing.T) {
	doc := &Document{Pages: []Page{{Index: 0, Pixels: uniformGrid(2, 2, 10)}}}
	Preprocess(doc, PreprocessOptions{Deskew: true})
	assert.Contains(t, doc.Pages[0].Warnings, "deskew-not-implemented")
}

func TestPreprocessKeepsDeclaredDPI(t *testing.T) {
	doc := &Document{Pages: []Page{{Index: 0, Pixels: uniformGrid(2, 2, 10), DPI: 204}}}
	Preprocess(doc, PreprocessOptions{DPI: 300})
	assert.Equal(t, 204, doc.Pages[0].DPI)
}
