package domain

const (
	AttachmentProcessing = "processing"
	AttachmentReady      = "ready"
	AttachmentError      = "error"
)

// AttachmentInfo is the transient state of the compose-box upload. It is
// cleared after a successful send or an explicit removal.
type AttachmentInfo struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Pages   int    `json:"pages"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
