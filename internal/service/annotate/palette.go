package annotate

import "image/color"

// palette is the class colour cycle, as hex RGB.
var palette = []uint32{
	0xFF3838, 0xFF9D97, 0xFF701F, 0xFFB21D, 0xCFD231, 0x48F90A, 0x92CC17, 0x3DDB86, 0x1A9334, 0x00D4BB,
	0x2C99A8, 0x00C2FF, 0x344593, 0x6473FF, 0x0018EC, 0x8438FF, 0x520085, 0xCB38FF, 0xFF95C8, 0xFF37C7,
}

// ClassColor returns the drawing colour of a class. Ids wrap around the palette.
func ClassColor(classID int) color.RGBA {
	if classID < 0 {
		classID = -classID
	}
	hex := palette[classID%len(palette)]
	return color.RGBA{R: uint8(hex >> 16), G: uint8(hex >> 8), B: uint8(hex), A: 0}
}

// textColor picks black or white text for a label background.
func textColor(bg color.RGBA) color.RGBA {
	luma := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if luma > 150 {
		return color.RGBA{A: 0}
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 0}
}
