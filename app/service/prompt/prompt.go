package prompt

import (
	"strings"

	_ "embed"

	"persona/app/config"
	"persona/app/service/profile"

	"github.com/samber/do"
)

//go:embed responder_prompt_template.txt
var responderPromptTemplate string

//go:embed evaluator_prompt_template.txt
var evaluatorPromptTemplate string

// ObfuscationDirective is appended to the responder instruction when the
// message contains the trigger.
const ObfuscationDirective = "Everything in your reply needs to be in Gibberish - it is mandatory that you " +
	"respond only and entirely in Gibberish. Apply exactly one rule to every word of the reply: " +
	"insert the syllable 'idig' after every consonant sound. Do not mix in plain language or any other rule."

// Instructions holds the system instructions built from the profile. The
// value is immutable once built and safe to share between turns.
type Instructions struct {
	Responder string
	Evaluator string
	Trigger   string
}

func New(di *do.Injector) (*Instructions, error) {
	cfg := do.MustInvoke[*config.Config](di)
	p := do.MustInvoke[*profile.Profile](di)

	instructions := Build(p, cfg.Persona.Trigger)
	return &instructions, nil
}

func Build(p *profile.Profile, trigger string) Instructions {
	replacer := strings.NewReplacer(
		"{name}", p.Name,
		"{summary}", p.Summary,
		"{profile}", p.Document,
	)

	return Instructions{
		Responder: replacer.Replace(strings.TrimSpace(responderPromptTemplate)),
		Evaluator: replacer.Replace(strings.TrimSpace(evaluatorPromptTemplate)),
		Trigger:   trigger,
	}
}

// ForMessage returns the responder instruction to use for message.
func (i Instructions) ForMessage(message string) string {
	return SelectInstruction(i.Responder, i.Trigger, message)
}

// SelectInstruction appends ObfuscationDirective to base when message
// contains trigger. An empty trigger never matches.
func SelectInstruction(base, trigger, message string) string {
	if trigger == "" || !strings.Contains(message, trigger) {
		return base
	}

	return base + "\n\n" + ObfuscationDirective
}

// RevisionInstruction extends base with the rejected attempt and the reason
// it was rejected.
func RevisionInstruction(base, rejectedReply, feedback string) string {
	var builder strings.Builder

	builder.WriteString(base)
	builder.WriteString("\n\n## Previous answer rejected\n")
	builder.WriteString("You just tried to reply, but the quality control rejected your reply\n")
	builder.WriteString("## Your attempted answer:\n")
	builder.WriteString(rejectedReply)
	builder.WriteString("\n\n## Reason for rejection:\n")
	builder.WriteString(feedback)
	builder.WriteString("\n\n")

	return builder.String()
}

// EvaluatorUserPrompt builds the single user turn sent to the evaluator.
// history is the already formatted conversation.
func EvaluatorUserPrompt(reply, message, history string) string {
	var builder strings.Builder

	builder.WriteString("Here's the conversation between the User and the Agent: \n\n")
	builder.WriteString(history)
	builder.WriteString("\n\nHere's the latest message from the User: \n\n")
	builder.WriteString(message)
	builder.WriteString("\n\nHere's the latest response from the Agent: \n\n")
	builder.WriteString(reply)
	builder.WriteString("\n\nPlease evaluate the response, replying with whether it is acceptable and your feedback.")

	return builder.String()
}
