package activities

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"text/template"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
)

// DefaultIntakeModel is used when no model is configured.
const DefaultIntakeModel = "claude-3-5-haiku-latest"

var errAPIKeyRequired = errors.New("API key required")

// IntakeAgent runs one turn of the design intake conversation per call. The
// model answers with a JSON object holding its reply, the brief so far and
// whether the brief is complete.
type IntakeAgent struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	prompt    *template.Template
}

// NewIntakeAgent creates the agent. Extra request options are passed to the
// Anthropic client.
func NewIntakeAgent(apiKey, model string, opts ...option.RequestOption) (*IntakeAgent, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY", errAPIKeyRequired)
	}
	if model == "" {
		model = DefaultIntakeModel
	}
	tmpl, err := template.New("intake").Parse(intakePromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse intake template: %w", err)
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &IntakeAgent{
		client:    anthropic.NewClient(opts...),
		model:     anthropic.Model(model),
		maxTokens: 1024,
		prompt:    tmpl,
	}, nil
}

// intakeReply is the JSON shape the model is asked to produce.
type intakeReply struct {
	Message string              `json:"message"`
	Brief   *domain.DesignBrief `json:"brief"`
	Done    bool                `json:"done"`
}

// Intake sends the user's message with the prior turns as history.
func (a *IntakeAgent) Intake(ctx context.Context, in domain.IntakeInput) (domain.IntakeOutput, error) {
	system, err := a.renderPrompt(in)
	if err != nil {
		return domain.IntakeOutput{}, &domain.CollaboratorError{Kind: domain.ErrorKindInvalidInput, Message: "failed to render prompt", Err: err}
	}

	messages := make([]anthropic.MessageParam, 0, len(in.History)+1)
	for _, turn := range in.History {
		block := anthropic.NewTextBlock(turn.Text)
		if turn.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(in.Message)))

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages:  messages,
	})
	if err != nil {
		return domain.IntakeOutput{}, classifyAnthropic(ctx, err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return domain.IntakeOutput{}, &domain.CollaboratorError{Kind: domain.ErrorKindInvalidOutput, Message: "no text block in reply", Retryable: true}
	}

	reply, err := parseIntakeReply(text)
	if err != nil {
		return domain.IntakeOutput{}, &domain.CollaboratorError{Kind: domain.ErrorKindInvalidOutput, Message: "reply is not the expected JSON", Retryable: true, Err: err}
	}
	brief := reply.Brief
	if brief == nil {
		brief = in.PartialBrief.Clone()
	}
	return domain.IntakeOutput{AgentMessage: reply.Message, PartialBrief: brief, Done: reply.Done}, nil
}

func (a *IntakeAgent) renderPrompt(in domain.IntakeInput) (string, error) {
	data := struct {
		RoomPhotos        int
		InspirationPhotos int
		Analysis          *domain.RoomAnalysis
		Scan              *domain.ScanData
		Brief             string
	}{Analysis: in.RoomAnalysis, Scan: in.ScanData}
	for _, ph := range in.Photos {
		if ph.Kind == domain.PhotoKindInspiration {
			data.InspirationPhotos++
		} else {
			data.RoomPhotos++
		}
	}
	if in.PartialBrief != nil {
		b, err := json.Marshal(in.PartialBrief)
		if err != nil {
			return "", err
		}
		data.Brief = string(b)
	}

	var buf bytes.Buffer
	if err := a.prompt.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// parseIntakeReply accepts the object bare or wrapped in a code fence.
func parseIntakeReply(text string) (intakeReply, error) {
	var reply intakeReply
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "{"); i > 0 {
		text = text[i:]
	}
	if i := strings.LastIndex(text, "}"); i >= 0 && i < len(text)-1 {
		text = text[:i+1]
	}
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		return reply, err
	}
	if strings.TrimSpace(reply.Message) == "" && !reply.Done {
		return reply, errors.New("empty message")
	}
	return reply, nil
}

func classifyAnthropic(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		ce := &domain.CollaboratorError{StatusCode: apiErr.StatusCode, Message: "intake agent call failed", Err: err}
		switch {
		case apiErr.StatusCode == 429:
			ce.Kind, ce.Retryable = domain.ErrorKindRateLimited, true
		case apiErr.StatusCode >= 500:
			ce.Kind, ce.Retryable = domain.ErrorKindTransient, true
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			ce.Kind = domain.ErrorKindUnavailable
		default:
			ce.Kind = domain.ErrorKindInvalidInput
		}
		return ce
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &domain.CollaboratorError{Kind: domain.ErrorKindTimeout, Message: "intake agent timed out", Retryable: true, Err: err}
	}
	return &domain.CollaboratorError{Kind: domain.ErrorKindTransient, Message: "intake agent unreachable", Retryable: true, Err: err}
}

const intakePromptTemplate = `You are the intake designer for a room redesign app. Talk with the user to learn
how they want their room to feel, one short question at a time.

The user uploaded {{.RoomPhotos}} room photo(s) and {{.InspirationPhotos}} inspiration photo(s).
{{- with .Analysis}}
Room analysis: {{.Summary}}{{if .RoomType}} (room type: {{.RoomType}}){{end}}
{{- if .StyleTags}}
Detected style: {{range $i, $t := .StyleTags}}{{if $i}}, {{end}}{{$t}}{{end}}
{{- end}}
{{- end}}
{{- with .Scan}}
Measured room: {{.Width}}m x {{.Length}}m, ceiling {{.Height}}m.
{{- end}}
{{- if .Brief}}
Brief so far: {{.Brief}}
{{- end}}

Reply with a single JSON object and nothing else:
{"message": "<your reply to the user>", "brief": {<design brief fields gathered so far>}, "done": <true when the brief is complete>}

Brief fields: room_type, occupants, pain_points, keep_items, style {lighting, colors, textures, clutter, mood},
constraints, budget, inspiration_notes [{photo_index, note}].`
