package frame

import (
	"fmt"
	"image"
)

// ValidRotation reports whether deg is one of 0, 90, 180 or 270.
func ValidRotation(deg int) error {
	switch deg {
	case 0, 90, 180, 270:
		return nil
	}
	return fmt.Errorf("%w: %d", ErrInvalidRotation, deg)
}

// ToUpright maps a rectangle in sensor coordinates of a w×h frame into the
// coordinates of the frame rotated clockwise by deg.
func ToUpright(r image.Rectangle, w, h, deg int) image.Rectangle {
	switch deg {
	case 90:
		return image.Rect(h-r.Max.Y, r.Min.X, h-r.Min.Y, r.Max.X)
	case 180:
		return image.Rect(w-r.Max.X, h-r.Max.Y, w-r.Min.X, h-r.Min.Y)
	case 270:
		return image.Rect(r.Min.Y, w-r.Max.X, r.Max.Y, w-r.Min.X)
	}
	return r
}

// ToSensor is the inverse of ToUpright. w and h are the sensor dimensions.
func ToSensor(r image.Rectangle, w, h, deg int) image.Rectangle {
	switch deg {
	case 90:
		return image.Rect(r.Min.Y, h-r.Max.X, r.Max.Y, h-r.Min.X)
	case 180:
		return image.Rect(w-r.Max.X, h-r.Max.Y, w-r.Min.X, h-r.Min.Y)
	case 270:
		return image.Rect(w-r.Max.Y, r.Min.X, w-r.Min.Y, r.Max.X)
	}
	return r
}
