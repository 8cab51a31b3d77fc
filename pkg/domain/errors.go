package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Submission guards. These surface as inline status text, never as
	// state transitions.
	ErrEmptySubmission      = errors.New("nothing to send")
	ErrAttachmentProcessing = errors.New("wait until the attachment finishes processing")
	ErrSessionBusy          = errors.New("a response is still streaming")
	ErrSessionComplete      = errors.New("this session is already complete")
)
