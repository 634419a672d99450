package dashboard

import (
	"fmt"
	"html"
	"html/template"
	"strings"
	"time"
)

const DefaultBackupSubmitDelay = 500 * time.Millisecond

// PendingAction is the optimistic "in progress" state shown on a control
// between the user's click and the server's response.
type PendingAction struct {
	Label       string
	SubmitDelay time.Duration
}

// DeleteAction is shown on destructive buttons.
func DeleteAction() PendingAction {
	return PendingAction{Label: "Deleting..."}
}

// BackupAction is shown on the "Backup now" button; the form is submitted after delay.
func BackupAction(delay time.Duration) PendingAction {
	return PendingAction{Label: "Starting...", SubmitDelay: delay}
}

// Attrs renders the data attributes read by app.js.
func (a PendingAction) Attrs() template.HTMLAttr {
	var b strings.Builder
	fmt.Fprintf(&b, `data-pending-label="%s"`, html.EscapeString(a.Label))
	if a.SubmitDelay > 0 {
		fmt.Fprintf(&b, ` data-submit-delay-ms="%d"`, a.SubmitDelay.Milliseconds())
	}
	return template.HTMLAttr(b.String())
}
