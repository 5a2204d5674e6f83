package extractor

import (
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bespokepunks/traitsampler/internal/sampler"
)

// ErrNoSprites is returned when a directory holds no PNG sprites.
var ErrNoSprites = errors.New("no sprites found")

// Stem returns the file name without directory or extension.
func Stem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// ListSprites returns the PNG file names in dir, sorted.
func ListSprites(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("sprite directory does not exist at path: '%s'", dir)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sprite directory '%s': %w", dir, err)
	}

	var sprites []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(strings.ToLower(file.Name()), ".png") {
			sprites = append(sprites, file.Name())
		}
	}
	if len(sprites) == 0 {
		return nil, fmt.Errorf("%w in directory '%s'", ErrNoSprites, dir)
	}

	sort.Strings(sprites)
	return sprites, nil
}

// LoadSprite decodes the PNG at path into a Sprite. The file is closed
// before returning.
func LoadSprite(path string) (*sampler.Sprite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sprite '%s': %w", path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sprite '%s': %w", path, err)
	}
	return sampler.FromImage(Stem(path), img), nil
}

// SaveSprite encodes s as PNG at path.
func SaveSprite(path string, s *sampler.Sprite) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create sprite '%s': %w", path, err)
	}
	if err := png.Encode(f, s.Image()); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode sprite '%s': %w", path, err)
	}
	return f.Close()
}
