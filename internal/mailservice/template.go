package mailservice

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*
var templateFS embed.FS

type TemplateParser interface {
	ParseTemplate(name string, data any) (*bytes.Buffer, *bytes.Buffer, *bytes.Buffer, error)
}

// Template renders the embedded email templates. Each template file defines
// three named blocks: subject, plainBody, and htmlBody.
type Template struct{}

func NewTemplate() *Template {
	return &Template{}
}

func (tp *Template) ParseTemplate(name string, data any) (subject, plainBody, htmlBody *bytes.Buffer, err error) {
	t, err := template.New("email").ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("could not parse template %s: %w", name, err)
	}

	subject = new(bytes.Buffer)
	if err = t.ExecuteTemplate(subject, "subject", data); err != nil {
		return nil, nil, nil, err
	}

	plainBody = new(bytes.Buffer)
	if err = t.ExecuteTemplate(plainBody, "plainBody", data); err != nil {
		return nil, nil, nil, err
	}

	htmlBody = new(bytes.Buffer)
	if err = t.ExecuteTemplate(htmlBody, "htmlBody", data); err != nil {
		return nil, nil, nil, err
	}

	return subject, plainBody, htmlBody, nil
}
