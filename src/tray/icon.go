package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"runtime"
)

const iconSize = 32

var (
	frameColor  = color.RGBA{R: 0x00, G: 0x78, B: 0xd4, A: 0xff}
	cornerColor = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
)

// drawIcon renders a dashed selection frame with solid corners.
func drawIcon() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	const lo, hi = 4, iconSize - 5
	for i := lo; i <= hi; i++ {
		if (i/3)%2 == 0 {
			for _, w := range []int{0, 1} {
				img.SetRGBA(i, lo+w, frameColor)
				img.SetRGBA(i, hi-w, frameColor)
				img.SetRGBA(lo+w, i, frameColor)
				img.SetRGBA(hi-w, i, frameColor)
			}
		}
	}
	for _, c := range []image.Point{{lo, lo}, {hi - 3, lo}, {lo, hi - 3}, {hi - 3, hi - 3}} {
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				img.SetRGBA(c.X+x, c.Y+y, cornerColor)
			}
		}
	}
	return img
}

func iconPNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, drawIcon()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// wrapICO puts a PNG image into a single-entry .ico container.
func wrapICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	// ICONDIR
	_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	dim := uint8(size)
	if size >= 256 {
		dim = 0
	}
	buf.Write([]byte{dim, dim, 0, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))  // planes
	_ = binary.Write(&buf, binary.LittleEndian, uint16(32)) // bit count
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pngData)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(6+16))
	buf.Write(pngData)
	return buf.Bytes()
}

// Icon returns the tray icon in the format systray expects on this platform.
func Icon() ([]byte, error) {
	data, err := iconPNG()
	if err != nil {
		return nil, err
	}
	if runtime.GOOS == "windows" {
		return wrapICO(data, iconSize), nil
	}
	return data, nil
}
