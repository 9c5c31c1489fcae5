package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"persona/app/service/prompt"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"google.golang.org/genai"
)

// ErrMalformedEvaluation is returned when the evaluator output does not match
// the two-field schema.
var ErrMalformedEvaluation = errors.New("malformed evaluation")

var evaluationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"is_acceptable": {Type: genai.TypeBoolean},
		"feedback":      {Type: genai.TypeString},
	},
	Required:         []string{"is_acceptable", "feedback"},
	PropertyOrdering: []string{"is_acceptable", "feedback"},
}

// evaluationPayload uses pointers so that absent fields can be told apart
// from zero values.
type evaluationPayload struct {
	IsAcceptable *bool   `json:"is_acceptable" validate:"required"`
	Feedback     *string `json:"feedback" validate:"required"`
}

// EvaluatorAgent judges candidate replies through the secondary provider.
type EvaluatorAgent struct {
	client      *genai.Client
	model       string
	instruction string
	validate    *validator.Validate
}

func NewEvaluatorAgent(client *genai.Client, model, instruction string) *EvaluatorAgent {
	return &EvaluatorAgent{
		client:      client,
		model:       model,
		instruction: instruction,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *EvaluatorAgent) Call(ctx context.Context, reply, message string, history []Message) (*Evaluation, error) {
	userPrompt := prompt.EvaluatorUserPrompt(reply, message, formatHistory(history))

	res, err := a.client.Models.GenerateContent(
		ctx,
		a.model,
		[]*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(a.instruction, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    evaluationSchema,
		},
	)
	if err != nil {
		return nil, oops.In("evaluator_agent").With("model", a.model).Wrapf(err, "failed to generate content")
	}

	text, err := responseText(res)
	if err != nil {
		return nil, oops.In("evaluator_agent").With("model", a.model).Wrap(err)
	}

	evaluation, err := a.decode(text)
	if err != nil {
		return nil, oops.In("evaluator_agent").With("model", a.model).With("raw", text).Wrap(err)
	}

	return evaluation, nil
}

func responseText(res *genai.GenerateContentResponse) (string, error) {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates returned", ErrMalformedEvaluation)
	}

	return res.Text(), nil
}

// decode parses text strictly: unknown fields, missing fields, wrong types
// and trailing data are all rejected.
func (a *EvaluatorAgent) decode(text string) (*Evaluation, error) {
	decoder := json.NewDecoder(strings.NewReader(text))
	decoder.DisallowUnknownFields()

	var payload evaluationPayload
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvaluation, err)
	}

	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformedEvaluation)
	}

	if err := a.validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvaluation, err)
	}

	return &Evaluation{
		IsAcceptable: *payload.IsAcceptable,
		Feedback:     *payload.Feedback,
	}, nil
}
