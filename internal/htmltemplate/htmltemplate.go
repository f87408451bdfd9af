package htmltemplate

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed tmpl/*.tmpl
var Tmpl embed.FS

func ExecuteHTMLTemplate(templateName string, data interface{}) (string, error) {
	t, err := template.ParseFS(Tmpl, "tmpl/*.tmpl")
	if err != nil {
		return "", fmt.Errorf("error parsing embedded template files: %w", err)
	}

	var executedTemplate bytes.Buffer
	err = t.ExecuteTemplate(&executedTemplate, templateName, data)
	if err != nil {
		return "", fmt.Errorf("executing html template: %w", err)
	}

	return executedTemplate.String(), nil
}

// MoreInfoTemplate feeds the default transaction status page served when the
// operator does not render its own.
type MoreInfoTemplate struct {
	ID     string
	Status string
	Kind   string
}

func ExecuteHTMLTemplateForMoreInfoPage(data MoreInfoTemplate) (string, error) {
	return ExecuteHTMLTemplate("more_info.tmpl", data)
}
