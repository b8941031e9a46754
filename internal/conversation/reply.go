package conversation

import "github.com/wolfman30/carrental-bot/internal/session"

// MessageKind tags the shape of an inbound message.
type MessageKind string

const (
	KindText        MessageKind = "text"
	KindInteractive MessageKind = "interactive"
	KindOther       MessageKind = "other"
)

// InboundMessage is the channel-neutral form of a customer message.
type InboundMessage struct {
	// ID is the provider message id, used for de-duplication.
	ID   string
	From string
	Name string
	// Text is the body, or the stable id of a button/list selection.
	Text string
	Kind MessageKind
}

// Body is one of TextBody, ButtonsBody or ListBody.
type Body interface {
	isBody()
}

// TextBody is a plain text reply.
type TextBody struct {
	Text string
}

// Button is an interactive reply button.
type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ButtonsBody is text with up to three reply buttons.
type ButtonsBody struct {
	Text    string
	Buttons []Button
	Header  string
	Footer  string
}

// ListRow is a selectable list entry.
type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ListSection groups rows under a title.
type ListSection struct {
	Title string    `json:"title"`
	Rows  []ListRow `json:"rows"`
}

// ListBody is text with a list picker opened by ButtonLabel.
type ListBody struct {
	Text        string
	ButtonLabel string
	Sections    []ListSection
	Header      string
	Footer      string
}

func (TextBody) isBody()    {}
func (ButtonsBody) isBody() {}
func (ListBody) isBody()    {}

// Image is an attachment sent ahead of the reply body.
type Image struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// Reply is the outcome of one turn. State always equals the session
// state persisted for that turn.
type Reply struct {
	Body   Body
	Images []Image
	State  session.State
}

// Kind names the body variant: text, buttons or list.
func (r Reply) Kind() string {
	switch r.Body.(type) {
	case ButtonsBody:
		return "buttons"
	case ListBody:
		return "list"
	default:
		return "text"
	}
}

// Text returns the body text regardless of variant.
func (r Reply) Text() string {
	switch b := r.Body.(type) {
	case TextBody:
		return b.Text
	case ButtonsBody:
		return b.Text
	case ListBody:
		return b.Text
	}
	return ""
}
