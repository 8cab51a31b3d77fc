package domain

// CouncilCompletionMarker is the exact line the project council ends its
// final plan with. A council conversation locks once it appears.
const CouncilCompletionMarker = "Project plan complete."

// Advisor is a chat persona. Its ID partitions conversation history.
type Advisor struct {
	ID           string `json:"id"`
	Role         string `json:"role"`
	Domain       string `json:"domain"`
	Description  string `json:"description"`
	ImageURL     string `json:"imageUrl"`
	SystemPrompt string `json:"systemPrompt"`
}
