package render

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
)

// SubregionTransform returns the affine UV transform that maps the unit
// square onto cell index of a columns x rows atlas. Cells are numbered
// row-major from the top-left.
func SubregionTransform(columns, rows, index int) (mgl32.Mat3, error) {
	if columns < 1 || rows < 1 {
		return mgl32.Mat3{}, errors.AssertionFailedf("atlas grid %dx%d must be at least 1x1", columns, rows)
	}
	if index < 0 || index >= columns*rows {
		return mgl32.Mat3{}, errors.AssertionFailedf("sub-sprite %d outside %dx%d atlas", index, columns, rows)
	}

	col := index % columns
	row := index / columns

	scale := mgl32.Scale2D(1/float32(columns), 1/float32(rows))
	translate := mgl32.Translate2D(float32(col)/float32(columns), float32(row)/float32(rows))
	return translate.Mul3(scale), nil
}
