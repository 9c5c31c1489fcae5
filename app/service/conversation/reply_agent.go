package conversation

import (
	"context"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/oops"
	"github.com/sashabaranov/go-openai"
)

// ReplyAgent produces candidate and revised replies through the primary
// provider.
type ReplyAgent struct {
	client *openai.Client
	model  string
}

func NewReplyAgent(client *openai.Client, model string) *ReplyAgent {
	return &ReplyAgent{
		client: client,
		model:  model,
	}
}

func (a *ReplyAgent) Call(ctx context.Context, instruction, message string, history []Message) (string, error) {
	aiResponse, err := a.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:    a.model,
			Messages: buildChatMessages(instruction, message, history),
		},
	)
	if err != nil {
		return "", oops.In("reply_agent").With("model", a.model).Wrapf(err, "failed to create chat completion")
	}

	if len(aiResponse.Choices) == 0 {
		return "", oops.In("reply_agent").With("model", a.model).Errorf("no chat completion found")
	}

	return aiResponse.Choices[0].Message.Content, nil
}

// buildChatMessages lays out [system] + history + [user message].
func buildChatMessages(instruction, message string, history []Message) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: instruction,
	})

	messages = append(messages, pie.Map(history, func(m Message) openai.ChatCompletionMessage {
		return openai.ChatCompletionMessage{
			Role:    chatRole(m.Role),
			Content: m.Content,
		}
	})...)

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	return messages
}

func chatRole(role Role) string {
	if role == RoleAssistant {
		return openai.ChatMessageRoleAssistant
	}

	return openai.ChatMessageRoleUser
}
