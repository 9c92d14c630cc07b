package chat

const (
	// EmptyPlaceholder is shown instead of the message list when there are no messages.
	EmptyPlaceholder = "No messages yet. Be the first to say hi! 👋"

	inputPlaceholderConnected = "Type a message..."
	inputPlaceholderOffline   = "Connecting..."
)

// MessageLine is one rendered message bubble.
type MessageLine struct {
	Message
	Own bool
}

// View is everything the chat card renders, derived from a Snapshot.
type View struct {
	Lines            []MessageLine
	Placeholder      string // set when Lines is empty
	TypingLine       string
	Status           string
	InputDisabled    bool
	InputPlaceholder string
	Input            string
	// ScrollToBottom is set when the log grew since the previous view.
	ScrollToBottom bool
}

// BuildView derives the view of snap. prev is the previous message count, used to decide
// whether the list should scroll; pass -1 when there is no previous view.
func BuildView(snap Snapshot, input string, prev int) View {
	v := View{
		Lines:          make([]MessageLine, 0, len(snap.Messages)),
		TypingLine:     TypingText(snap.TypingUsers),
		Status:         statusBadge(snap.State),
		InputDisabled:  snap.State != StateConnected,
		Input:          input,
		ScrollToBottom: prev >= 0 && len(snap.Messages) > prev,
	}
	for _, m := range snap.Messages {
		v.Lines = append(v.Lines, MessageLine{
			Message: m,
			Own:     m.Type == MessageTypeUser && m.Username == snap.Username,
		})
	}
	if len(v.Lines) == 0 {
		v.Placeholder = EmptyPlaceholder
	}
	if v.InputDisabled {
		v.InputPlaceholder = inputPlaceholderOffline
	} else {
		v.InputPlaceholder = inputPlaceholderConnected
	}
	return v
}

func statusBadge(state ConnectionState) string {
	switch state {
	case StateConnected:
		return "Live"
	case StateReconnecting:
		return "Reconnecting..."
	case StateClosed:
		return "Offline"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Connecting..."
	}
}
