package graphs

import "github.com/pkg/errors"

// ErrShapeMismatch is returned, wrapped, whenever the counts, indices or
// feature widths of a GraphBatch are inconsistent with one another.
var ErrShapeMismatch = errors.New("shape mismatch")
