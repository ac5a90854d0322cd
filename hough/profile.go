package hough

import (
	"image"
	"image/draw"

	"gocv.io/x/gocv"
)

// extractProfile pulls the laser line out of a camera frame. For every image
// column the brightest pixel above the detection threshold becomes one
// profile sample, converted to 1/1000 inches using the configured scale and
// origin. Columns with no lit pixel produce no sample, so the profile length
// is bounded by the frame width.
func extractProfile(img image.Image, hc *CircleFinderConfig) []Point {
	croppedImg := cropImage(img, hc.Crop)
	mat := imageToMat(croppedImg)
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	if !hc.SkipBlur { // Blur to reduce speckle on the laser line
		gocv.MedianBlur(gray, &gray, 5)
	}

	// profile samples are in the original frame's pixel coordinates even
	// when a crop is configured
	var offX, offY int
	if hc.Crop != nil {
		offX, offY = hc.Crop.Min.X, hc.Crop.Min.Y
	}

	points := make([]Point, 0, gray.Cols())
	for col := 0; col < gray.Cols(); col++ {
		bestRow := -1
		var bestVal uint8
		for row := 0; row < gray.Rows(); row++ {
			if v := gray.GetUCharAt(row, col); v > bestVal {
				bestVal = v
				bestRow = row
			}
		}
		if bestRow < 0 || int(bestVal) < hc.MinBrightness {
			continue
		}

		px := col + offX
		py := bestRow + offY
		points = append(points, Point{
			X:          int(float64(px-hc.OriginX) * hc.MilsPerPixel),
			Y:          int(float64(hc.OriginY-py) * hc.MilsPerPixel), // image y grows down
			Brightness: int(bestVal),
		})
	}
	return points
}

func cropImage(src image.Image, crop *image.Rectangle) image.Image {
	if crop == nil {
		return src
	}
	// Create a new RGBA image with the size of the crop rectangle
	croppedImg := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))

	// Adjust the draw point to correctly position the cropped area
	draw.Draw(croppedImg, croppedImg.Bounds(), src, crop.Min, draw.Src)
	return croppedImg
}

func imageToMat(img image.Image) gocv.Mat {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			// Convert from 0-65535 to 0-255
			mat.SetUCharAt(y, x*3, uint8(b>>8))
			mat.SetUCharAt(y, x*3+1, uint8(g>>8))
			mat.SetUCharAt(y, x*3+2, uint8(r>>8))
		}
	}

	return mat
}
