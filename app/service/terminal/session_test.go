package terminal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"persona/app/service/conversation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedReplier struct {
	replies   []string
	errs      []error
	histories [][]conversation.Message
}

func (r *scriptedReplier) Reply(_ context.Context, _ string, history []conversation.Message) (string, error) {
	r.histories = append(r.histories, append([]conversation.Message(nil), history...))

	reply, err := r.replies[0], r.errs[0]
	r.replies, r.errs = r.replies[1:], r.errs[1:]

	return reply, err
}

func TestSession_KeepsHistory(t *testing.T) {
	replier := &scriptedReplier{
		replies: []string{"At Example Corp.", "Staff engineer."},
		errs:    []error{nil, nil},
	}
	var out bytes.Buffer

	session := NewSession(replier, strings.NewReader("Where do you work?\n\nWhat is your role?\n"), &out)
	require.NoError(t, session.Run(context.Background()))

	require.Len(t, replier.histories, 2)
	assert.Empty(t, replier.histories[0])
	assert.Equal(t, []conversation.Message{
		{Role: conversation.RoleUser, Content: "Where do you work?"},
		{Role: conversation.RoleAssistant, Content: "At Example Corp."},
	}, replier.histories[1])

	assert.Len(t, session.History(), 4)
	assert.Contains(t, out.String(), "At Example Corp.\n")
	assert.Contains(t, out.String(), "Staff engineer.\n")
}

func TestSession_ErrorDoesNotExtendHistory(t *testing.T) {
	replier := &scriptedReplier{
		replies: []string{"", "fine"},
		errs:    []error{errors.New("boom"), nil},
	}
	var out bytes.Buffer

	session := NewSession(replier, strings.NewReader("first\nsecond\n"), &out)
	require.NoError(t, session.Run(context.Background()))

	assert.Empty(t, replier.histories[1])
	assert.Contains(t, out.String(), "something went wrong")
	assert.Len(t, session.History(), 2)
}

func TestSession_Exit(t *testing.T) {
	replier := &scriptedReplier{}
	var out bytes.Buffer

	session := NewSession(replier, strings.NewReader("/exit\nnever sent\n"), &out)
	require.NoError(t, session.Run(context.Background()))

	assert.Empty(t, replier.histories)
}
