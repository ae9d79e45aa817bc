package domain

// ActivitySchemaVersion is stamped on every activity input.
const ActivitySchemaVersion = 1

// ActivityKind names an external collaborator call.
type ActivityKind string

const (
	ActivityAnalysis   ActivityKind = "analysis"
	ActivityIntake     ActivityKind = "intake"
	ActivityGeneration ActivityKind = "generation"
	ActivityEdit       ActivityKind = "edit"
	ActivityShopping   ActivityKind = "shopping"
	ActivityPurge      ActivityKind = "purge"
)

type AnalysisInput struct {
	SchemaVersion int       `json:"schema_version"`
	ProjectID     string    `json:"project_id"`
	RoomPhotoRefs []string  `json:"room_photo_refs"`
	ScanData      *ScanData `json:"scan_data,omitempty"`
}

type AnalysisOutput struct {
	Analysis RoomAnalysis `json:"analysis"`
}

type IntakeInput struct {
	SchemaVersion int                `json:"schema_version"`
	ProjectID     string             `json:"project_id"`
	Message       string             `json:"message"`
	History       []ConversationTurn `json:"history,omitempty"`
	PartialBrief  *DesignBrief       `json:"partial_brief,omitempty"`
	Photos        []Photo            `json:"photos"`
	ScanData      *ScanData          `json:"scan_data,omitempty"`
	RoomAnalysis  *RoomAnalysis      `json:"room_analysis,omitempty"`
}

type IntakeOutput struct {
	AgentMessage string       `json:"agent_message"`
	PartialBrief *DesignBrief `json:"partial_brief,omitempty"`
	Done         bool         `json:"done"`
}

type GenerationInput struct {
	SchemaVersion        int          `json:"schema_version"`
	ProjectID            string       `json:"project_id"`
	RoomPhotoRefs        []string     `json:"room_photo_refs"`
	InspirationPhotoRefs []string     `json:"inspiration_photo_refs,omitempty"`
	Brief                *DesignBrief `json:"brief,omitempty"`
	ScanData             *ScanData    `json:"scan_data,omitempty"`
}

type GenerationOutput struct {
	Options []GeneratedOption `json:"options"`
}

type EditInput struct {
	SchemaVersion int              `json:"schema_version"`
	ProjectID     string           `json:"project_id"`
	CurrentImage  string           `json:"current_image"`
	Action        EditAction       `json:"action"`
	History       []RevisionRecord `json:"history,omitempty"`
	Brief         *DesignBrief     `json:"brief,omitempty"`
}

type EditOutput struct {
	ImageRef string `json:"image_ref"`
}

type ShoppingInput struct {
	SchemaVersion     int              `json:"schema_version"`
	ProjectID         string           `json:"project_id"`
	FinalImage        string           `json:"final_image"`
	OriginalPhotoRefs []string         `json:"original_photo_refs"`
	Brief             *DesignBrief     `json:"brief,omitempty"`
	Revisions         []RevisionRecord `json:"revisions,omitempty"`
	ScanData          *ScanData        `json:"scan_data,omitempty"`
}

type ShoppingOutput struct {
	List ShoppingList `json:"list"`
}
