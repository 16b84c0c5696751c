package transform

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// Resampling filter names accepted by scale, contain, pad and thumbnail.
const (
	Nearest  = "NEAREST"
	Box      = "BOX"
	Bilinear = "BILINEAR"
	Hamming  = "HAMMING"
	Bicubic  = "BICUBIC"
	Lanczos  = "LANCZOS"
)

var resampleNames = []string{Nearest, Box, Bilinear, Hamming, Bicubic, Lanczos}

var resampleFilters = map[string]imaging.ResampleFilter{
	Nearest:  imaging.NearestNeighbor,
	Box:      imaging.Box,
	Bilinear: imaging.Linear,
	Hamming:  imaging.Hamming,
	Bicubic:  imaging.CatmullRom,
	Lanczos:  imaging.Lanczos,
}

// thumbnailInterpolation maps resample names onto nfnt/resize kernels for the
// final pass of a thumbnail. nfnt has no box or hamming kernel, so those two
// are absent and resampleThumbnail uses imaging's filters for them.
var thumbnailInterpolation = map[string]resize.InterpolationFunction{
	Nearest:  resize.NearestNeighbor,
	Bilinear: resize.Bilinear,
	Bicubic:  resize.Bicubic,
	Lanczos:  resize.Lanczos3,
}

// resampleThumbnail is the final pass of a thumbnail.
func resampleThumbnail(src image.Image, w, h int, method string) image.Image {
	if interp, ok := thumbnailInterpolation[method]; ok {
		return resize.Resize(uint(w), uint(h), src, interp)
	}
	return imaging.Resize(src, w, h, resampleFilters[method])
}

func resampleParam(name, description string) Param {
	return Param{
		Name:        name,
		Type:        "string",
		Default:     Bicubic,
		Choices:     resampleNames,
		Description: description,
	}
}
