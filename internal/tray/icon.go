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

// Icons are drawn at startup: a filled disc in the state colour.
var (
	IconActive   = drawIcon(color.RGBA{0x2e, 0xb8, 0x5c, 0xff})
	IconInactive = drawIcon(color.RGBA{0x8a, 0x8a, 0x8a, 0xff})
	IconHidden   = drawIcon(color.RGBA{})
)

func drawIcon(c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	r := iconSize/2 - 2
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx, dy := x-iconSize/2, y-iconSize/2
			if dx*dx+dy*dy <= r*r {
				img.SetRGBA(x, y, c)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	if runtime.GOOS == "windows" {
		return wrapICO(buf.Bytes())
	}
	return buf.Bytes()
}

// wrapICO embeds one PNG image in an ICO container, which the Windows tray
// requires.
func wrapICO(pngData []byte) []byte {
	var buf bytes.Buffer
	// ICONDIR
	_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	buf.Write([]byte{iconSize, iconSize, 0, 0})
	_ = binary.Write(&buf, binary.LittleEndian, [2]uint16{1, 32})
	_ = binary.Write(&buf, binary.LittleEndian, [2]uint32{uint32(len(pngData)), 22})
	buf.Write(pngData)
	return buf.Bytes()
}
