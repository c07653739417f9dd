// Package preview renders reduced meshes as wireframe bitmaps.
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/bmp"

	"github.com/Faultbox/meshsimplify/pkg/math"
	"github.com/Faultbox/meshsimplify/pkg/mesh"
)

// ErrInvalidSize is returned for images smaller than one pixel per margin.
var ErrInvalidSize = errors.New("invalid preview size")

const margin = 8

var (
	background = color.RGBA{24, 24, 32, 255}
	wire       = color.RGBA{120, 220, 140, 255}
	vertex     = color.RGBA{255, 200, 60, 255}
)

// Renderer draws a front orthographic wireframe (X right, Y up) and
// writes it as BMP.
type Renderer struct {
	outputDir string
	prefix    string
	size      int
}

// NewRenderer creates a renderer producing size x size images.
func NewRenderer(outputDir, prefix string, size int) *Renderer {
	return &Renderer{
		outputDir: outputDir,
		prefix:    prefix,
		size:      size,
	}
}

// SetOutputDir sets the directory used by Save.
func (r *Renderer) SetOutputDir(dir string) {
	r.outputDir = dir
}

// Render draws every triangle edge of b, fitted to the image with a margin.
func (r *Renderer) Render(b *mesh.Buffers) (*image.RGBA, error) {
	if r.size <= 2*margin {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, r.size)
	}

	img := image.NewRGBA(image.Rect(0, 0, r.size, r.size))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = background.R, background.G, background.B, background.A
	}
	if b == nil || len(b.Positions) == 0 {
		return img, nil
	}

	bounds := math.BoundsOf(b.Positions)
	extent := max(bounds.Size().X, bounds.Size().Y)
	if extent == 0 {
		extent = 1
	}
	center := bounds.Center()
	scale := float32(r.size-2*margin) / extent
	half := float32(r.size) / 2

	project := func(p math.Vec3) image.Point {
		return image.Point{
			X: int((p.X-center.X)*scale + half),
			Y: int((center.Y-p.Y)*scale + half),
		}
	}

	for _, tris := range b.SubMeshes {
		for i := 0; i+2 < len(tris); i += 3 {
			a := project(b.Positions[tris[i]])
			c := project(b.Positions[tris[i+1]])
			d := project(b.Positions[tris[i+2]])
			line(img, a, c, wire)
			line(img, c, d, wire)
			line(img, d, a, wire)
		}
	}
	for _, p := range b.Positions {
		pt := project(p)
		img.SetRGBA(pt.X, pt.Y, vertex)
	}
	return img, nil
}

// line draws a Bresenham segment; points outside img are clipped by SetRGBA.
func line(img *image.RGBA, from, to image.Point, c color.RGBA) {
	dx := abs(to.X - from.X)
	dy := -abs(to.Y - from.Y)
	sx, sy := 1, 1
	if from.X > to.X {
		sx = -1
	}
	if from.Y > to.Y {
		sy = -1
	}

	err := dx + dy
	x, y := from.X, from.Y
	for {
		img.SetRGBA(x, y, c)
		if x == to.X && y == to.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Save writes img as BMP. An empty name gets a timestamped one.
func (r *Renderer) Save(img image.Image, name string) (string, error) {
	if r.outputDir != "" {
		if err := os.MkdirAll(r.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename := name
	if filename == "" {
		filename = r.GenerateFilename()
	} else if r.outputDir != "" && !filepath.IsAbs(filename) {
		filename = filepath.Join(r.outputDir, filename)
	}

	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := bmp.Encode(file, img); err != nil {
		return "", fmt.Errorf("encoding BMP: %w", err)
	}
	return filename, nil
}

// GenerateFilename returns a timestamped file name without saving.
func (r *Renderer) GenerateFilename() string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("%s_%s.bmp", r.prefix, timestamp)
	if r.outputDir != "" {
		filename = filepath.Join(r.outputDir, filename)
	}
	return filename
}
