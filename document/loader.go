package document

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/qafax/qafax/errors"
	"github.com/qafax/qafax/logger"
)

// Loader turns a path into a Document. Implementations must degrade
// rather than fail when a format cannot be decoded: the verification
// pipeline treats a text-fallback page as valid input.
type Loader interface {
	Load(path string) (*Document, error)
}

var textExtensions = map[string]bool{
	".txt":  true,
	".log":  true,
	".csv":  true,
	".json": true,
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// FileLoader loads documents from the local filesystem. Text formats are
// split into lines on a single page; raster formats are decoded to a
// grayscale grid. Anything else falls back to a text decode of the raw
// bytes with a warning, so loading only errors when the file itself is
// unreadable.
type FileLoader struct{}

// NewFileLoader creates a filesystem loader.
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// Load reads and decodes the file at path.
func (l *FileLoader) Load(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read document %s", path)
	}

	sum := sha256.Sum256(content)
	doc := &Document{
		Path:    path,
		Content: content,
		SHA256:  hex.EncodeToString(sum[:]),
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case textExtensions[ext]:
		doc.Pages = []Page{{Index: 0, TextLines: decodeLines(content)}}

	case imageExtensions[ext]:
		page, decodeErr := decodeImagePage(content)
		if decodeErr != nil {
			doc.Warnings = append(doc.Warnings, "image decode failed; falling back to text decode")
			doc.Pages = []Page{textFallbackPage(content)}
			logger.Warnw("image decode failed",
				logger.FieldFile, filepath.Base(path),
				logger.FieldError, decodeErr)
			break
		}
		doc.Pages = []Page{page}

	default:
		doc.Warnings = append(doc.Warnings, "binary loader unavailable; falling back to text decode")
		doc.Pages = []Page{textFallbackPage(content)}
	}

	logger.Debugw("document loaded",
		logger.FieldFile, filepath.Base(path),
		logger.FieldCount, len(doc.Pages),
		logger.FieldSize, doc.Size())
	return doc, nil
}

func decodeLines(content []byte) []string {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func textFallbackPage(content []byte) Page {
	return Page{
		Index:     0,
		TextLines: decodeLines(content),
		Warnings:  []string{"text-fallback"},
	}
}

// decodeImagePage decodes a raster image into a grayscale grid using the
// luma weights of the standard gray color model.
func decodeImagePage(content []byte) (Page, error) {
	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return Page{}, err
	}

	bounds := img.Bounds()
	rows := make([][]uint8, bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := make([]uint8, bounds.Dx())
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// 16-bit channels; BT.601 luma matches image/color's GrayModel.
			luma := (19595*r + 38470*g + 7471*b + 1<<15) >> 24
			row[x-bounds.Min.X] = uint8(luma)
		}
		rows[y-bounds.Min.Y] = row
	}

	return Page{Index: 0, Pixels: rows}, nil
}
