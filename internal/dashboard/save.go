package dashboard

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SaveOutcome classifies the response to a background configuration save.
type SaveOutcome int

const (
	SaveUnknown SaveOutcome = iota
	SaveSucceeded
	SaveFailed
)

// Markers the configuration page renders into its flash messages.
const (
	FlashSelector      = "#flashes .alert"
	SuccessMarker      = "alert-success"
	SuccessText        = "Configuration saved"
	FailureMarker      = "alert-danger"
	InvalidTokenText   = "Invalid GitHub token"
	AutoSaveFailedText = "Auto-save failed. Please try saving manually."
)

// ClassifySaveResponse inspects the toasts in the HTML returned by POST /config.
// Only alerts inside #flashes count; a success alert wins over a failure alert.
func ClassifySaveResponse(body string) SaveOutcome {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return SaveUnknown
	}

	outcome := SaveUnknown
	doc.Find(FlashSelector).EachWithBreak(func(_ int, alert *goquery.Selection) bool {
		text := alert.Text()
		if alert.HasClass(SuccessMarker) || strings.Contains(text, SuccessText) {
			outcome = SaveSucceeded
			return false
		}
		if alert.HasClass(FailureMarker) || strings.Contains(text, InvalidTokenText) {
			outcome = SaveFailed
		}
		return true
	})
	return outcome
}

// Message returns the toast text for an outcome, empty when nothing is shown.
func (o SaveOutcome) Message() string {
	switch o {
	case SaveSucceeded:
		return "Configuration saved and repositories synced!"
	case SaveFailed:
		return "Invalid GitHub token. Please check your token."
	default:
		return ""
	}
}

func (o SaveOutcome) String() string {
	switch o {
	case SaveSucceeded:
		return "succeeded"
	case SaveFailed:
		return "failed"
	default:
		return "unknown"
	}
}
