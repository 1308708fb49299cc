package notionsync

import (
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-reports/internal/runs"
)

// Property names in the Notion run database.
const (
	propName    = "Name"
	propRunID   = "Run ID"
	propStatus  = "Status"
	propStarted = "Started"
	propRows    = "Rows"
	propKept    = "Kept"
	propWritten = "Written"
	propSkipped = "Skipped"
	propFailed  = "Failed"
	propInput   = "Input"
	propError   = "Error"
)

// notionTextLimit is the maximum length of a single rich text object.
const notionTextLimit = 2000

// RunToNotionProperties maps a run summary onto the run database schema.
func RunToNotionProperties(run *runs.Run) notionapi.Properties {
	started := notionapi.Date(run.StartedAt.UTC())

	props := notionapi.Properties{
		propName: notionapi.TitleProperty{
			Title: richText(fmt.Sprintf("Report %s", run.StartedAt.UTC().Format("2006-01-02 15:04"))),
		},
		propRunID: notionapi.RichTextProperty{
			RichText: richText(run.RunID),
		},
		propStatus: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(run.Status)},
		},
		propStarted: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &started},
		},
		propRows:    notionapi.NumberProperty{Number: float64(run.Rows)},
		propKept:    notionapi.NumberProperty{Number: float64(run.Filtered)},
		propWritten: notionapi.NumberProperty{Number: float64(run.Count(runs.OutcomeWritten))},
		propSkipped: notionapi.NumberProperty{Number: float64(run.Count(runs.OutcomeSkipped))},
		propFailed:  notionapi.NumberProperty{Number: float64(run.Count(runs.OutcomeFailed))},
	}

	if run.InputPath != "" {
		props[propInput] = notionapi.RichTextProperty{RichText: richText(run.InputPath)}
	}
	if run.Error != "" {
		props[propError] = notionapi.RichTextProperty{RichText: richText(run.Error)}
	}

	return props
}

func richText(content string) []notionapi.RichText {
	if r := []rune(content); len(r) > notionTextLimit {
		content = string(r[:notionTextLimit])
	}
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

// extractRunID returns the Run ID property of a page, or "" if absent.
func extractRunID(page notionapi.Page) string {
	if prop, ok := page.Properties[propRunID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok && len(rt.RichText) > 0 {
			return rt.RichText[0].PlainText
		}
	}
	return ""
}
