package service

import (
	"strings"
	"unicode/utf8"

	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
)

// Payload limits checked before a signal reaches the engine.
const (
	MaxRoomDimension     = 50.0
	MinFeedbackLength    = 10
	MaxFeedbackLength    = 2000
	MaxIntakeMessage     = 4000
	MaxAnnotationRegions = 3
	MinInstructionLength = 10
	MaxRegionRadius      = 0.5
)

// PhotoRequest is the client payload for add_photo.
type PhotoRequest struct {
	Kind       domain.PhotoKind `json:"kind"`
	StorageRef string           `json:"storage_ref"`
	Note       string           `json:"note"`
}

func validatePhoto(req PhotoRequest) error {
	switch req.Kind {
	case domain.PhotoKindRoom, domain.PhotoKindInspiration:
	default:
		return domain.Invalid("kind", "must be %q or %q", domain.PhotoKindRoom, domain.PhotoKindInspiration)
	}
	if strings.TrimSpace(req.StorageRef) == "" {
		return domain.Invalid("storage_ref", "is required")
	}
	if utf8.RuneCountInString(req.Note) > domain.MaxPhotoNoteLength {
		return domain.Invalid("note", "must be at most %d characters", domain.MaxPhotoNoteLength)
	}
	return nil
}

func validateScan(scan *domain.ScanData) error {
	if scan == nil {
		return domain.Invalid("scan", "is required")
	}
	dims := []struct {
		name  string
		value float64
	}{
		{"width", scan.Width},
		{"length", scan.Length},
		{"height", scan.Height},
	}
	for _, d := range dims {
		if d.value <= 0 || d.value > MaxRoomDimension {
			return domain.Invalid(d.name, "must be greater than 0 and at most %gm", MaxRoomDimension)
		}
	}
	for i, w := range scan.Walls {
		if w.Length < 0 || w.Height < 0 {
			return domain.Invalid("walls", "wall %d has a negative dimension", i)
		}
	}
	for i, o := range scan.Openings {
		if o.Width < 0 || o.Height < 0 {
			return domain.Invalid("openings", "opening %d has a negative dimension", i)
		}
	}
	for i, f := range scan.Furniture {
		if f.Width < 0 || f.Depth < 0 || f.Height < 0 {
			return domain.Invalid("furniture", "item %d has a negative dimension", i)
		}
	}
	return nil
}

func validateIntakeMessage(msg string) (string, error) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "", domain.Invalid("message", "is required")
	}
	if utf8.RuneCountInString(msg) > MaxIntakeMessage {
		return "", domain.Invalid("message", "must be at most %d characters", MaxIntakeMessage)
	}
	return msg, nil
}

func validateFeedback(text string) (string, error) {
	text = strings.TrimSpace(text)
	n := utf8.RuneCountInString(text)
	if n < MinFeedbackLength {
		return "", domain.Invalid("feedback", "must be at least %d characters", MinFeedbackLength)
	}
	if n > MaxFeedbackLength {
		return "", domain.Invalid("feedback", "must be at most %d characters", MaxFeedbackLength)
	}
	return text, nil
}

func validateAnnotation(regions []domain.AnnotationRegion) ([]domain.AnnotationRegion, error) {
	if len(regions) == 0 || len(regions) > MaxAnnotationRegions {
		return nil, domain.Invalid("regions", "must contain 1 to %d regions", MaxAnnotationRegions)
	}
	seen := make(map[int]bool, len(regions))
	out := make([]domain.AnnotationRegion, 0, len(regions))
	for _, r := range regions {
		if r.RegionID < 1 || r.RegionID > MaxAnnotationRegions {
			return nil, domain.Invalid("region_id", "must be between 1 and %d", MaxAnnotationRegions)
		}
		if seen[r.RegionID] {
			return nil, domain.Invalid("region_id", "%d is used more than once", r.RegionID)
		}
		seen[r.RegionID] = true
		if r.CenterX < 0 || r.CenterX > 1 || r.CenterY < 0 || r.CenterY > 1 {
			return nil, domain.Invalid("center", "region %d must lie within [0,1]", r.RegionID)
		}
		if r.Radius <= 0 || r.Radius > MaxRegionRadius {
			return nil, domain.Invalid("radius", "region %d must be in (0, %g]", r.RegionID, MaxRegionRadius)
		}
		r.Instruction = strings.TrimSpace(r.Instruction)
		if utf8.RuneCountInString(r.Instruction) < MinInstructionLength {
			return nil, domain.Invalid("instruction", "region %d needs at least %d characters", r.RegionID, MinInstructionLength)
		}
		out = append(out, r)
	}
	return out, nil
}

func validateOptionIndex(idx int) error {
	if idx != 0 && idx != 1 {
		return domain.Invalid("option_index", "must be 0 or 1")
	}
	return nil
}

func validateStreamed(res *domain.StreamedResult) error {
	if res == nil {
		return domain.Invalid("result", "is required")
	}
	set := 0
	for _, present := range []bool{res.Generation != nil, res.Shopping != nil, res.Error != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return domain.Invalid("result", "exactly one of generation, shopping or error must be set")
	}
	if res.Error != nil && res.Error.Kind == "" {
		return domain.Invalid("error.kind", "is required")
	}
	return nil
}
