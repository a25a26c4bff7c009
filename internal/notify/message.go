package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	_ "embed"
)

//go:embed message.tmpl
var messageTemplate string

var templates = template.Must(template.New("message").Parse(messageTemplate))

// Message is a single outgoing notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

type messageData struct {
	Name   string
	Skills string
}

// Render builds the shortlist message for a candidate.
func Render(to, name string, skills []string) (Message, error) {
	data := messageData{Name: name, Skills: strings.Join(skills, ", ")}

	subject, err := execute("subject", data)
	if err != nil {
		return Message{}, err
	}
	body, err := execute("body", data)
	if err != nil {
		return Message{}, err
	}

	return Message{To: to, Subject: subject, Body: body}, nil
}

func execute(name string, data messageData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
