package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"persona/app/service/conversation"

	"github.com/samber/oops"
)

const exitCommand = "/exit"

type Replier interface {
	Reply(ctx context.Context, message string, history []conversation.Message) (string, error)
}

// Session is an interactive chat on a terminal. Unlike the core it owns the
// history and resends it on every turn.
type Session struct {
	replier Replier
	in      io.Reader
	out     io.Writer
	history []conversation.Message
}

func NewSession(replier Replier, in io.Reader, out io.Writer) *Session {
	return &Session{
		replier: replier,
		in:      in,
		out:     out,
	}
}

// Run reads messages line by line until EOF, /exit or ctx cancellation.
func (s *Session) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)

	for {
		fmt.Fprint(s.out, "> ")

		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			if err := scanner.Err(); err != nil {
				return oops.In("terminal").Wrapf(err, "read input")
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}

		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if message == exitCommand {
			return nil
		}

		reply, err := s.replier.Reply(ctx, message, s.history)
		if err != nil {
			slog.Error("Turn failed", "error", err)
			fmt.Fprintln(s.out, "Sorry, something went wrong. Please try again.")
			continue
		}

		fmt.Fprintln(s.out, reply)

		s.history = append(s.history,
			conversation.Message{Role: conversation.RoleUser, Content: message},
			conversation.Message{Role: conversation.RoleAssistant, Content: reply},
		)
	}
}

func (s *Session) History() []conversation.Message {
	return s.history
}
