package chart

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	headerHeight = 40
	stripHeight  = 24
)

var textColor = color.RGBA{R: 51, G: 51, B: 51, A: 255}

// renderFacets splits rows on the facet column, renders one panel per level
// on a shared y range and lays the panels out left to right under a header
// carrying the title and the panel labels.
func renderFacets(f Frame, rows []int, p Plot) ([]byte, error) {
	m := p.Mapping
	facets := levels(f, m.Facet, rows)
	panelWidth := p.Width / len(facets)
	panelHeight := p.Height - headerHeight
	if panelWidth < 120 || panelHeight < 120 {
		return nil, errors.New("canvas too small for facets")
	}

	colors := levels(f, m.Color, rows)
	built := make([]layers, len(facets))
	ys := newExtent()
	for k, level := range facets {
		var subset []int
		for _, i := range rows {
			if f.Label(m.Facet, i) == level {
				subset = append(subset, i)
			}
		}
		l, err := buildLayers(f, subset, colors, p)
		if err != nil {
			return nil, err
		}
		built[k] = l
		ys.add(l.y.min, l.y.max)
	}
	yRange := ys.padded(0.08)

	canvas := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	drawText(canvas, p.Title, 10, 16)
	for k, l := range built {
		data, err := renderXY(l, p, "", panelWidth, panelHeight, yRange)
		if err != nil {
			return nil, err
		}
		panel, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		left := k * panelWidth
		dst := image.Rect(left, headerHeight, left+panelWidth, p.Height)
		draw.Draw(canvas, dst, panel, panel.Bounds().Min, draw.Src)

		label := m.Facet + " = " + facets[k]
		tw := measure(label)
		drawText(canvas, label, left+(panelWidth-tw)/2, headerHeight-8)
	}
	return encodePNG(canvas)
}

type legendEntry struct {
	label string
	color drawing.Color
}

// withLegendStrip appends a strip below a rendered PNG with a caption and a
// colored swatch per entry.
func withLegendStrip(data []byte, caption string, entries []legendEntry) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()+stripHeight))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, 0, b.Dx(), b.Dy()), img, b.Min, draw.Src)

	y := b.Dy() + stripHeight - 8
	x := 12
	if caption != "" {
		drawText(out, caption, x, y)
		x += measure(caption) + 24
	}
	for _, e := range entries {
		swatch := image.Rect(x, y-10, x+10, y)
		draw.Draw(out, swatch, image.NewUniform(toRGBA(e.color)), image.Point{}, draw.Src)
		x += 14
		drawText(out, e.label, x, y)
		x += measure(e.label) + 18
	}
	return encodePNG(out)
}

func toRGBA(c drawing.Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

func drawText(dst draw.Image, text string, x, y int) {
	if text == "" {
		return
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func measure(text string) int {
	d := &font.Drawer{Face: basicfont.Face7x13}
	return d.MeasureString(text).Ceil()
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
