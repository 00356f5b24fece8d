package domain

type ChatRole string

const (
	RoleUser ChatRole = "user"
	RoleAI   ChatRole = "ai"
)

type ChatMessage struct {
	ID      string   `json:"id"`
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

const (
	ChatGreeting         = "Upload documents and ask me any questions about them."
	ChatRejectedReply    = "Sorry, I ran into an error. Check the backend console."
	ChatUnreachableReply = "Error connecting to the AI. Is the backend server running?"
)
