package conversation

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the history supplied by the caller on every turn.
type Message struct {
	Role    Role   `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content"`
}

type Evaluation struct {
	IsAcceptable bool   `json:"is_acceptable"`
	Feedback     string `json:"feedback"`
}

type State string

const (
	// StateAccepted means the first candidate passed evaluation.
	StateAccepted State = "accepted"
	// StateRevised means the candidate was rejected and replaced once.
	StateRevised State = "revised"
)

type Turn struct {
	ID         string
	Reply      string
	State      State
	Candidate  string
	Evaluation Evaluation
}
