package conversation

import (
	"context"
	"log/slog"
	"time"

	"persona/app/config"
	"persona/app/service/prompt"

	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/samber/oops"
)

type Responder interface {
	Call(ctx context.Context, instruction, message string, history []Message) (string, error)
}

type Evaluator interface {
	Call(ctx context.Context, reply, message string, history []Message) (*Evaluation, error)
}

// Service runs one turn: respond, evaluate, and revise at most once.
// It keeps no state between turns and is safe for concurrent use.
type Service struct {
	instructions *prompt.Instructions
	responder    Responder
	evaluator    Evaluator
}

func New(di *do.Injector) (*Service, error) {
	ctx := do.MustInvoke[context.Context](di)
	cfg := do.MustInvoke[*config.Config](di)
	instructions := do.MustInvoke[*prompt.Instructions](di)

	geminiClient, err := createGeminiClient(ctx, cfg.Gemini.Evaluator, cfg.HTTP.Timeout)
	if err != nil {
		return nil, oops.In("conversation").Wrapf(err, "failed to create gemini client")
	}

	replyAgent := NewReplyAgent(createClient(cfg.OpenAI.Reply, cfg.HTTP.Timeout), cfg.OpenAI.Reply.Model)
	evaluatorAgent := NewEvaluatorAgent(geminiClient, cfg.Gemini.Evaluator.Model, instructions.Evaluator)

	return NewService(instructions, replyAgent, evaluatorAgent), nil
}

func NewService(instructions *prompt.Instructions, responder Responder, evaluator Evaluator) *Service {
	return &Service{
		instructions: instructions,
		responder:    responder,
		evaluator:    evaluator,
	}
}

// Reply answers message given the prior history.
func (s *Service) Reply(ctx context.Context, message string, history []Message) (string, error) {
	turn, err := s.HandleTurn(ctx, message, history)
	if err != nil {
		return "", err
	}

	return turn.Reply, nil
}

func (s *Service) HandleTurn(ctx context.Context, message string, history []Message) (*Turn, error) {
	turnID := uuid.NewString()
	start := time.Now()

	reply, err := s.respond(ctx, message, history)
	if err != nil {
		return nil, oops.In("conversation").With("turn_id", turnID).Wrapf(err, "respond")
	}

	evaluation, err := s.evaluator.Call(ctx, reply, message, history)
	if err != nil {
		return nil, oops.In("conversation").With("turn_id", turnID).Wrapf(err, "evaluate")
	}

	turn := &Turn{
		ID:         turnID,
		Reply:      reply,
		State:      StateAccepted,
		Candidate:  reply,
		Evaluation: *evaluation,
	}

	if evaluation.IsAcceptable {
		slog.InfoContext(ctx, "Passed evaluation - returning reply",
			"turn_id", turnID,
			"duration", time.Since(start),
		)
		return turn, nil
	}

	slog.InfoContext(ctx, "Failed evaluation - retrying",
		"turn_id", turnID,
		"feedback", evaluation.Feedback,
	)

	revised, err := s.revise(ctx, reply, message, history, evaluation.Feedback)
	if err != nil {
		return nil, oops.In("conversation").With("turn_id", turnID).Wrapf(err, "revise")
	}

	turn.Reply = revised
	turn.State = StateRevised

	slog.InfoContext(ctx, "Returning revised reply",
		"turn_id", turnID,
		"duration", time.Since(start),
	)

	return turn, nil
}

func (s *Service) respond(ctx context.Context, message string, history []Message) (string, error) {
	return s.responder.Call(ctx, s.instructions.ForMessage(message), message, history)
}

// revise asks the responder once more with the rejected reply and the
// feedback. The result is not evaluated again.
func (s *Service) revise(ctx context.Context, rejectedReply, message string, history []Message, feedback string) (string, error) {
	instruction := prompt.RevisionInstruction(s.instructions.Responder, rejectedReply, feedback)

	return s.responder.Call(ctx, instruction, message, history)
}
