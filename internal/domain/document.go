package domain

// DocumentRequest is the title and markdown body of one document to render.
// It is consumed once by the renderer.
type DocumentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Document describes a rendered file on disk. Nothing keeps track of it after
// the call returns.
type Document struct {
	Path    string `json:"path"`
	Locator string `json:"locator"`
}

// ToolStatus is the structured result every tool boundary returns instead of
// propagating collaborator failures.
type ToolStatus struct {
	Status  string `json:"status"`
	Details any    `json:"details,omitempty"`
}

const (
	StatusPDFGenerated = "PDF generated successfully"
	StatusEmailSent    = "Email sent successfully"
	StatusEmailFailed  = "Failed to send email"
)
