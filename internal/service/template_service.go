// internal/service/template_service.go
package service

import (
	"strings"

	"github.com/unclebandit/coldmail-backend/internal/model"
)

const NamePlaceholder = "{{name}}"

// RenderTemplate replaces every {{key}} with its value.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{{"+k+"}}", v)
	}
	return result
}

// Personalize fills {{name}} with the contact's trimmed name. Without a
// contact the body is returned unchanged.
func Personalize(html string, contact *model.Contact) string {
	if contact == nil {
		return html
	}
	return RenderTemplate(html, map[string]string{"name": strings.TrimSpace(contact.Name)})
}
