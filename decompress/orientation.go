package decompress

import "image"

// orientNRGBA returns a copy of src with the EXIF orientation o (2-8) baked
// into the pixel layout, so the result reads upright left-to-right.
func orientNRGBA(src *image.NRGBA, o int) *image.NRGBA {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	dw, dh := w, h
	if o >= 5 { // the transposed orientations swap the axes
		dw, dh = h, w
	}
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))

	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			var sx, sy int
			switch o {
			case 2: // mirrored horizontally
				sx, sy = w-1-x, y
			case 3: // rotated 180
				sx, sy = w-1-x, h-1-y
			case 4: // mirrored vertically
				sx, sy = x, h-1-y
			case 5: // transposed
				sx, sy = y, x
			case 6: // rotated 90 CW
				sx, sy = y, h-1-x
			case 7: // transversed
				sx, sy = w-1-y, h-1-x
			case 8: // rotated 270 CW
				sx, sy = w-1-y, x
			default:
				sx, sy = x, y
			}
			di := dst.PixOffset(x, y)
			si := src.PixOffset(bounds.Min.X+sx, bounds.Min.Y+sy)
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst
}
