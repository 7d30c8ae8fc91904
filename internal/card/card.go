// Package card builds the Google Chat cardsV2 documents sent for task
// lifecycle events. The core treats these as opaque payloads; only the
// builders here know the wire shape.
//
// Format reference:
// https://developers.google.com/chat/api/guides/message-formats/cards
package card

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/chimehook/chimehook/internal/alert"
)

type message struct {
	CardsV2 []cardV2 `json:"cardsV2"`
}

type cardV2 struct {
	CardID string `json:"cardId"`
	Card   body   `json:"card"`
}

type body struct {
	Header   header    `json:"header"`
	Sections []section `json:"sections"`
}

type header struct {
	Title string `json:"title"`
}

type section struct {
	Widgets []widget `json:"widgets"`
}

type widget struct {
	DecoratedText *decoratedText `json:"decoratedText,omitempty"`
	ButtonList    *buttonList    `json:"buttonList,omitempty"`
}

type decoratedText struct {
	TopLabel string `json:"topLabel"`
	Text     string `json:"text"`
	WrapText bool   `json:"wrapText,omitempty"`
}

type buttonList struct {
	Buttons []button `json:"buttons"`
}

type button struct {
	Text    string  `json:"text"`
	Color   Color   `json:"color"`
	OnClick onClick `json:"onClick"`
}

type onClick struct {
	OpenLink openLink `json:"openLink"`
}

type openLink struct {
	URL string `json:"url"`
}

// Success builds the card for a completed task.
func Success(ev alert.Event, logBaseURL string) (json.RawMessage, error) {
	return build("chimehook-task-success", "✅ Task completed successfully!", StatusSuccess, ev, logBaseURL)
}

// Failure builds the card for a failed task.
func Failure(ev alert.Event, logBaseURL string) (json.RawMessage, error) {
	return build("chimehook-task-failure", "❌ Task failed!", StatusFailure, ev, logBaseURL)
}

// Text builds a minimal free-form message, useful for small
// informative alerts that are not tied to a single task.
func Text(text string) (json.RawMessage, error) {
	return json.Marshal(map[string]string{"text": text})
}

func build(cardID, title string, status Status, ev alert.Event, logBaseURL string) (json.RawMessage, error) {
	logURL := TaskLogURL(logBaseURL, ev.EntityID, ev.RunID, ev.TaskID)

	msg := message{
		CardsV2: []cardV2{{
			CardID: cardID,
			Card: body{
				Header: header{Title: title},
				Sections: []section{{
					Widgets: []widget{
						{DecoratedText: &decoratedText{
							TopLabel: "Task Name",
							Text:     "<b>" + ev.TaskName + "</b>",
						}},
						{DecoratedText: &decoratedText{
							TopLabel: "Task Description",
							Text:     ev.Description,
							WrapText: true,
						}},
						{DecoratedText: &decoratedText{
							TopLabel: "DAG ID",
							Text:     ev.EntityID,
						}},
						{DecoratedText: &decoratedText{
							TopLabel: "Hostname",
							Text:     ev.Hostname,
						}},
						{DecoratedText: &decoratedText{
							TopLabel: "Execution Date",
							Text:     ev.StartedAt.Format("2006-01-02 15:04:05"),
						}},
						{DecoratedText: &decoratedText{
							TopLabel: "Execution number / Max executions",
							Text:     fmt.Sprintf("%d / %d", ev.Attempt, ev.MaxAttempts),
						}},
						{ButtonList: &buttonList{
							Buttons: []button{{
								Text:    "<b>View Logs</b>",
								Color:   ColorFor(status),
								OnClick: onClick{OpenLink: openLink{URL: logURL}},
							}},
						}},
					},
				}},
			},
		}},
	}

	// the chat API expects literal <b> markup, so HTML escaping must
	// stay off
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(msg); err != nil {
		return nil, fmt.Errorf("build card: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
