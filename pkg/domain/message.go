package domain

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	ID              string           `json:"id"`
	Role            string           `json:"role"`
	Content         string           `json:"content"`
	AttachmentMeta  *AttachmentMeta  `json:"attachmentMeta,omitempty"`
	Attachments     []PageImage      `json:"attachments,omitempty"`
	ToolInvocations []ToolInvocation `json:"toolInvocations,omitempty"`
}

// AttachmentMeta is set once on the user message that carried an attachment
// and never changes afterwards.
type AttachmentMeta struct {
	Name      string `json:"name"`
	PageCount int    `json:"pageCount"`
}

// PageImage is a single rasterized page of an uploaded document, self-contained
// as a data URI so it can travel inside the completion request.
type PageImage struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	URL         string `json:"url"`
}
