package workflow

import (
	"product-page-studio/internal/product"
	"product-page-studio/internal/refimage"
)

type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseAnalyzing        Phase = "analyzing"
	PhaseGeneratingImages Phase = "generating_images"
	PhaseReady            Phase = "ready"
	PhaseError            Phase = "error"
)

// Snapshot is one immutable view of a session. Controllers replace it whole;
// callers must not mutate Product.
type Snapshot struct {
	Phase     Phase
	Reference refimage.Image
	Product   *product.Detail
	Error     string
	// Version increases with every published snapshot.
	Version uint64
}

func (s Snapshot) Busy() bool {
	return s.Phase == PhaseAnalyzing || s.Phase == PhaseGeneratingImages
}

func (s Snapshot) HasReference() bool {
	return !s.Reference.IsZero()
}

func (s Snapshot) Ready() bool {
	return s.Phase == PhaseReady && s.Product != nil
}

func (s Snapshot) sameState(other Snapshot) bool {
	return s.Phase == other.Phase &&
		s.Reference == other.Reference &&
		s.Product == other.Product &&
		s.Error == other.Error
}
