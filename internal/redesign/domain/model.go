package domain

import (
	"strings"
	"time"
)

// MaxIterations caps the number of revisions in one iteration cycle.
const MaxIterations = 5

// Project represents one room-redesign session and is the aggregate root
// of the state machine. Only the engine mutates it.
type Project struct {
	ID    string `json:"id"`
	Phase Phase  `json:"phase"`

	Photos       []Photo       `json:"photos"`
	ScanData     *ScanData     `json:"scan_data,omitempty"`
	RoomAnalysis *RoomAnalysis `json:"room_analysis,omitempty"`

	ConversationContext *ConversationContext `json:"conversation_context,omitempty"`
	DesignBrief         *DesignBrief         `json:"design_brief,omitempty"`

	GeneratedOptions    []GeneratedOption `json:"generated_options,omitempty"`
	SelectedOptionIndex *int              `json:"selected_option_index,omitempty"`
	CurrentImage        string            `json:"current_image,omitempty"`
	RevisionHistory     []RevisionRecord  `json:"revision_history"`
	IterationCount      int               `json:"iteration_count"`
	Approved            bool              `json:"approved"`
	PendingActions      []EditAction      `json:"pending_actions,omitempty"`

	ShoppingList *ShoppingList  `json:"shopping_list,omitempty"`
	Error        *ActivityError `json:"error,omitempty"`
	Cancelled    bool           `json:"cancelled"`

	// Streaming is set while an outside producer owns the current
	// generation or shopping result.
	Streaming bool `json:"streaming,omitempty"`

	// Epoch changes on every phase entry and on streaming claims. Activity
	// results carry the epoch they were launched under.
	Epoch int64 `json:"epoch"`

	WaitDeadline *time.Time `json:"wait_deadline,omitempty"`
	WaitPhase    Phase      `json:"wait_phase,omitempty"`
	WaitToken    int64      `json:"wait_token"`

	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	PurgedAt    *time.Time `json:"purged_at,omitempty"`
}

// PhotoKind distinguishes the room being redesigned from inspiration images.
type PhotoKind string

const (
	PhotoKindRoom        PhotoKind = "room"
	PhotoKindInspiration PhotoKind = "inspiration"
)

// Photo limits.
const (
	MaxPhotos            = 10
	MaxInspirationPhotos = 3
	MinRoomPhotos        = 2
	MaxPhotoNoteLength   = 200
)

// Photo is an uploaded image reference.
type Photo struct {
	ID         string    `json:"id"`
	Kind       PhotoKind `json:"kind"`
	StorageRef string    `json:"storage_ref"`
	Note       string    `json:"note,omitempty"`
	AddedAt    time.Time `json:"added_at"`
}

// ScanData is room geometry captured by a device scan. Lengths are metres.
type ScanData struct {
	Width     float64         `json:"width"`
	Length    float64         `json:"length"`
	Height    float64         `json:"height"`
	Walls     []Wall          `json:"walls,omitempty"`
	Openings  []Opening       `json:"openings,omitempty"`
	Furniture []FurnitureItem `json:"furniture,omitempty"`
}

type Wall struct {
	ID          string  `json:"id"`
	Length      float64 `json:"length"`
	Height      float64 `json:"height"`
	Orientation string  `json:"orientation,omitempty"`
}

type Opening struct {
	Type   string  `json:"type"` // door, window, archway
	WallID string  `json:"wall_id,omitempty"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type FurnitureItem struct {
	Name   string  `json:"name"`
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
	Height float64 `json:"height"`
}

// RoomAnalysis is the optional enrichment produced while analyzing.
type RoomAnalysis struct {
	Summary     string   `json:"summary"`
	RoomType    string   `json:"room_type,omitempty"`
	StyleTags   []string `json:"style_tags,omitempty"`
	Lighting    string   `json:"lighting,omitempty"`
	Constraints []string `json:"constraints,omitempty"`
}

// ConversationTurn is one message of the intake conversation.
type ConversationTurn struct {
	Role string    `json:"role"` // user, assistant
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// ConversationContext holds intake state that must survive restarts.
type ConversationContext struct {
	Turns          []ConversationTurn `json:"turns"`
	PartialBrief   *DesignBrief       `json:"partial_brief,omitempty"`
	PendingMessage string             `json:"pending_message,omitempty"`
}

// DesignBrief is the structured output of the intake collaborator.
type DesignBrief struct {
	RoomType         string            `json:"room_type,omitempty"`
	Occupants        string            `json:"occupants,omitempty"`
	PainPoints       []string          `json:"pain_points,omitempty"`
	KeepItems        []string          `json:"keep_items,omitempty"`
	Style            *StyleProfile     `json:"style,omitempty"`
	Constraints      []string          `json:"constraints,omitempty"`
	Budget           string            `json:"budget,omitempty"`
	InspirationNotes []InspirationNote `json:"inspiration_notes,omitempty"`
}

type StyleProfile struct {
	Lighting string   `json:"lighting,omitempty"`
	Colors   []string `json:"colors,omitempty"`
	Textures []string `json:"textures,omitempty"`
	Clutter  string   `json:"clutter,omitempty"`
	Mood     string   `json:"mood,omitempty"`
}

type InspirationNote struct {
	PhotoIndex int    `json:"photo_index"`
	Note       string `json:"note"`
}

// GeneratedOption is one candidate design.
type GeneratedOption struct {
	ImageRef string `json:"image_ref"`
	Caption  string `json:"caption"`
}

// EditKind is the flavour of an iteration action.
type EditKind string

const (
	EditKindAnnotation EditKind = "annotation"
	EditKindFeedback   EditKind = "feedback"
)

// AnnotationRegion marks a circular area of the current image.
// Coordinates are normalised to [0,1].
type AnnotationRegion struct {
	RegionID    int     `json:"region_id"`
	CenterX     float64 `json:"center_x"`
	CenterY     float64 `json:"center_y"`
	Radius      float64 `json:"radius"`
	Instruction string  `json:"instruction"`
}

// EditAction is a queued iteration request.
type EditAction struct {
	ID          string             `json:"id"`
	Kind        EditKind           `json:"kind"`
	Feedback    string             `json:"feedback,omitempty"`
	Regions     []AnnotationRegion `json:"regions,omitempty"`
	SubmittedAt time.Time          `json:"submitted_at"`
}

// Instructions flattens the action into the text recorded in the history.
func (a EditAction) Instructions() string {
	if a.Kind == EditKindFeedback {
		return a.Feedback
	}
	parts := make([]string, 0, len(a.Regions))
	for _, r := range a.Regions {
		parts = append(parts, r.Instruction)
	}
	return strings.Join(parts, "; ")
}

// RevisionRecord is one applied edit.
type RevisionRecord struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Kind           EditKind  `json:"kind"`
	Instructions   string    `json:"instructions"`
	ResultImageRef string    `json:"result_image_ref"`
}

// ShoppingList is the final shoppable output.
type ShoppingList struct {
	Items     []ProductMatch  `json:"items"`
	Unmatched []UnmatchedItem `json:"unmatched"`
	TotalCost float64         `json:"total_cost"`
}

type ProductMatch struct {
	CategoryGroup   string  `json:"category_group"`
	ProductName     string  `json:"product_name"`
	Retailer        string  `json:"retailer"`
	Price           float64 `json:"price"`
	ProductURL      string  `json:"product_url"`
	ImageURL        string  `json:"image_url,omitempty"`
	ConfidenceScore float64 `json:"confidence_score"`
	WhyMatched      string  `json:"why_matched,omitempty"`
	FitStatus       string  `json:"fit_status,omitempty"`
}

type UnmatchedItem struct {
	Category          string `json:"category"`
	SearchKeywords    string `json:"search_keywords"`
	GoogleShoppingURL string `json:"google_shopping_url,omitempty"`
}

// RoomPhotoCount returns the number of room (non-inspiration) photos.
func (p *Project) RoomPhotoCount() int {
	n := 0
	for _, ph := range p.Photos {
		if ph.Kind == PhotoKindRoom {
			n++
		}
	}
	return n
}

// InspirationPhotoCount returns the number of inspiration photos.
func (p *Project) InspirationPhotoCount() int {
	return len(p.Photos) - p.RoomPhotoCount()
}

// PhotoRefs returns storage refs for photos of the given kind, in order.
func (p *Project) PhotoRefs(kind PhotoKind) []string {
	var out []string
	for _, ph := range p.Photos {
		if ph.Kind == kind {
			out = append(out, ph.StorageRef)
		}
	}
	return out
}

// Clone returns a deep copy suitable for handing to readers.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.Photos = append([]Photo(nil), p.Photos...)
	if p.ScanData != nil {
		s := *p.ScanData
		s.Walls = append([]Wall(nil), p.ScanData.Walls...)
		s.Openings = append([]Opening(nil), p.ScanData.Openings...)
		s.Furniture = append([]FurnitureItem(nil), p.ScanData.Furniture...)
		c.ScanData = &s
	}
	if p.RoomAnalysis != nil {
		ra := *p.RoomAnalysis
		ra.StyleTags = append([]string(nil), p.RoomAnalysis.StyleTags...)
		ra.Constraints = append([]string(nil), p.RoomAnalysis.Constraints...)
		c.RoomAnalysis = &ra
	}
	if p.ConversationContext != nil {
		cc := *p.ConversationContext
		cc.Turns = append([]ConversationTurn(nil), p.ConversationContext.Turns...)
		cc.PartialBrief = p.ConversationContext.PartialBrief.Clone()
		c.ConversationContext = &cc
	}
	c.DesignBrief = p.DesignBrief.Clone()
	c.GeneratedOptions = append([]GeneratedOption(nil), p.GeneratedOptions...)
	if p.SelectedOptionIndex != nil {
		idx := *p.SelectedOptionIndex
		c.SelectedOptionIndex = &idx
	}
	c.RevisionHistory = append([]RevisionRecord(nil), p.RevisionHistory...)
	if p.PendingActions != nil {
		c.PendingActions = make([]EditAction, len(p.PendingActions))
		for i, a := range p.PendingActions {
			a.Regions = append([]AnnotationRegion(nil), a.Regions...)
			c.PendingActions[i] = a
		}
	}
	if p.ShoppingList != nil {
		sl := *p.ShoppingList
		sl.Items = append([]ProductMatch(nil), p.ShoppingList.Items...)
		sl.Unmatched = append([]UnmatchedItem(nil), p.ShoppingList.Unmatched...)
		c.ShoppingList = &sl
	}
	if p.Error != nil {
		e := *p.Error
		c.Error = &e
	}
	c.WaitDeadline = cloneTime(p.WaitDeadline)
	c.CompletedAt = cloneTime(p.CompletedAt)
	c.PurgedAt = cloneTime(p.PurgedAt)
	return &c
}

// Clone returns a deep copy of the brief.
func (b *DesignBrief) Clone() *DesignBrief {
	if b == nil {
		return nil
	}
	c := *b
	c.PainPoints = append([]string(nil), b.PainPoints...)
	c.KeepItems = append([]string(nil), b.KeepItems...)
	c.Constraints = append([]string(nil), b.Constraints...)
	c.InspirationNotes = append([]InspirationNote(nil), b.InspirationNotes...)
	if b.Style != nil {
		s := *b.Style
		s.Colors = append([]string(nil), b.Style.Colors...)
		s.Textures = append([]string(nil), b.Style.Textures...)
		c.Style = &s
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
