package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireInvalid(t *testing.T, err error, field string) {
	t.Helper()
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve), "expected validation error, got %v", err)
	assert.Equal(t, field, ve.Field)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestValidatePhoto(t *testing.T) {
	assert.NoError(t, validatePhoto(PhotoRequest{Kind: domain.PhotoKindRoom, StorageRef: "u/1.jpg"}))
	assert.NoError(t, validatePhoto(PhotoRequest{Kind: domain.PhotoKindInspiration, StorageRef: "u/2.jpg", Note: strings.Repeat("é", 200)}))

	requireInvalid(t, validatePhoto(PhotoRequest{Kind: "selfie", StorageRef: "u/1.jpg"}), "kind")
	requireInvalid(t, validatePhoto(PhotoRequest{Kind: domain.PhotoKindRoom, StorageRef: "  "}), "storage_ref")
	requireInvalid(t, validatePhoto(PhotoRequest{Kind: domain.PhotoKindRoom, StorageRef: "u/1.jpg", Note: strings.Repeat("a", 201)}), "note")
}

func TestValidateScan(t *testing.T) {
	ok := &domain.ScanData{Width: 4, Length: 5.5, Height: 2.6}
	assert.NoError(t, validateScan(ok))
	assert.NoError(t, validateScan(&domain.ScanData{Width: 50, Length: 50, Height: 50}))

	requireInvalid(t, validateScan(nil), "scan")
	requireInvalid(t, validateScan(&domain.ScanData{Width: 0, Length: 5, Height: 2}), "width")
	requireInvalid(t, validateScan(&domain.ScanData{Width: 4, Length: 50.1, Height: 2}), "length")
	requireInvalid(t, validateScan(&domain.ScanData{Width: 4, Length: 5, Height: -1}), "height")
	requireInvalid(t, validateScan(&domain.ScanData{Width: 4, Length: 5, Height: 2, Walls: []domain.Wall{{Length: -2}}}), "walls")
}

func TestValidateIntakeMessage(t *testing.T) {
	msg, err := validateIntakeMessage("  make it cosy  ")
	require.NoError(t, err)
	assert.Equal(t, "make it cosy", msg)

	_, err = validateIntakeMessage(" \n ")
	requireInvalid(t, err, "message")
	_, err = validateIntakeMessage(strings.Repeat("x", 4001))
	requireInvalid(t, err, "message")
	_, err = validateIntakeMessage(strings.Repeat("x", 4000))
	assert.NoError(t, err)
}

func TestValidateFeedback(t *testing.T) {
	text, err := validateFeedback("   warmer light   ")
	require.NoError(t, err)
	assert.Equal(t, "warmer light", text)

	// Ten characters only after trimming surrounding space.
	_, err = validateFeedback("   too dark   ")
	requireInvalid(t, err, "feedback")
	_, err = validateFeedback(strings.Repeat("a", 2001))
	requireInvalid(t, err, "feedback")
	_, err = validateFeedback(strings.Repeat("a", 2000))
	assert.NoError(t, err)
}

func TestValidateAnnotation(t *testing.T) {
	region := func(id int, x, y, r float64, text string) domain.AnnotationRegion {
		return domain.AnnotationRegion{RegionID: id, CenterX: x, CenterY: y, Radius: r, Instruction: text}
	}
	const instr = "replace this lamp"

	got, err := validateAnnotation([]domain.AnnotationRegion{
		region(1, 0, 1, 0.5, "  "+instr+"  "),
		region(3, 0.5, 0.5, 0.01, instr),
	})
	require.NoError(t, err)
	assert.Equal(t, instr, got[0].Instruction)

	cases := []struct {
		name    string
		regions []domain.AnnotationRegion
		field   string
	}{
		{"none", nil, "regions"},
		{"too many", []domain.AnnotationRegion{region(1, .5, .5, .1, instr), region(2, .5, .5, .1, instr), region(3, .5, .5, .1, instr), region(1, .5, .5, .1, instr)}, "regions"},
		{"id zero", []domain.AnnotationRegion{region(0, .5, .5, .1, instr)}, "region_id"},
		{"id four", []domain.AnnotationRegion{region(4, .5, .5, .1, instr)}, "region_id"},
		{"duplicate id", []domain.AnnotationRegion{region(2, .5, .5, .1, instr), region(2, .2, .2, .1, instr)}, "region_id"},
		{"center outside", []domain.AnnotationRegion{region(1, 1.1, .5, .1, instr)}, "center"},
		{"negative center", []domain.AnnotationRegion{region(1, .5, -0.1, .1, instr)}, "center"},
		{"zero radius", []domain.AnnotationRegion{region(1, .5, .5, 0, instr)}, "radius"},
		{"large radius", []domain.AnnotationRegion{region(1, .5, .5, .51, instr)}, "radius"},
		{"short instruction", []domain.AnnotationRegion{region(1, .5, .5, .1, "  red   ")}, "instruction"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validateAnnotation(tc.regions)
			requireInvalid(t, err, tc.field)
		})
	}
}

func TestValidateOptionIndex(t *testing.T) {
	assert.NoError(t, validateOptionIndex(0))
	assert.NoError(t, validateOptionIndex(1))
	requireInvalid(t, validateOptionIndex(2), "option_index")
	requireInvalid(t, validateOptionIndex(-1), "option_index")
}

func TestValidateStreamed(t *testing.T) {
	gen := &domain.GenerationOutput{}
	shop := &domain.ShoppingOutput{}
	actErr := &domain.ActivityError{Kind: domain.ErrorKindTransient, Retryable: true}

	assert.NoError(t, validateStreamed(&domain.StreamedResult{Generation: gen}))
	assert.NoError(t, validateStreamed(&domain.StreamedResult{Shopping: shop}))
	assert.NoError(t, validateStreamed(&domain.StreamedResult{Error: actErr}))

	requireInvalid(t, validateStreamed(nil), "result")
	requireInvalid(t, validateStreamed(&domain.StreamedResult{}), "result")
	requireInvalid(t, validateStreamed(&domain.StreamedResult{Generation: gen, Error: actErr}), "result")
	requireInvalid(t, validateStreamed(&domain.StreamedResult{Error: &domain.ActivityError{}}), "error.kind")
}
