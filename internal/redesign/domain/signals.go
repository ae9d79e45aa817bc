package domain

import "time"

// SignalKind names an external input to a project.
type SignalKind string

const (
	SignalAddPhoto              SignalKind = "add_photo"
	SignalRemovePhoto           SignalKind = "remove_photo"
	SignalConfirmPhotos         SignalKind = "confirm_photos"
	SignalSubmitScan            SignalKind = "submit_scan"
	SignalSkipScan              SignalKind = "skip_scan"
	SignalIntakeMessage         SignalKind = "intake_message"
	SignalSubmitBrief           SignalKind = "submit_brief"
	SignalSkipIntake            SignalKind = "skip_intake"
	SignalSelectOption          SignalKind = "select_option"
	SignalSubmitAnnotation      SignalKind = "submit_annotation"
	SignalSubmitFeedback        SignalKind = "submit_feedback"
	SignalApprove               SignalKind = "approve"
	SignalRetry                 SignalKind = "retry"
	SignalStartOver             SignalKind = "start_over"
	SignalCancel                SignalKind = "cancel"
	SignalClaimStreaming        SignalKind = "claim_streaming"
	SignalDeliverStreamedResult SignalKind = "deliver_streamed_result"
)

// Signal is a fire-and-forget input. Only the payload field matching Kind is read.
type Signal struct {
	Kind SignalKind `json:"kind"`
	At   time.Time  `json:"at"`

	Photo       *Photo          `json:"photo,omitempty"`
	PhotoID     string          `json:"photo_id,omitempty"`
	Scan        *ScanData       `json:"scan,omitempty"`
	Message     string          `json:"message,omitempty"`
	Brief       *DesignBrief    `json:"brief,omitempty"`
	OptionIndex int             `json:"option_index,omitempty"`
	Action      *EditAction     `json:"action,omitempty"`
	Streamed    *StreamedResult `json:"streamed,omitempty"`
}

// StreamedResult is a result pushed by a producer that claimed streaming mode.
// Exactly one of the fields is set.
type StreamedResult struct {
	Generation *GenerationOutput `json:"generation,omitempty"`
	Shopping   *ShoppingOutput   `json:"shopping,omitempty"`
	Error      *ActivityError    `json:"error,omitempty"`
}
