package domain

type NoticeKind string

const (
	NoticeNone    NoticeKind = ""
	NoticeInfo    NoticeKind = "info"
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a user-visible status line produced by an action.
type Notice struct {
	Kind NoticeKind `json:"kind"`
	Text string     `json:"text"`
}

func InfoNotice(text string) Notice    { return Notice{Kind: NoticeInfo, Text: text} }
func SuccessNotice(text string) Notice { return Notice{Kind: NoticeSuccess, Text: text} }
func ErrorNotice(text string) Notice   { return Notice{Kind: NoticeError, Text: text} }

func (n Notice) IsZero() bool {
	return n.Kind == NoticeNone && n.Text == ""
}
