// internal/service/template_service.go
package service

import (
	"strings"

	"github.com/funnelreach/dispatch-backend/internal/model"
)

// RenderTemplate substitutes {field} placeholders from the data map.
// Unknown placeholders are left as-is. Pure; independent of scheduling
// and dedup.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		if v == "" {
			v = "N/A"
		}
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

// RenderForLead renders a template against a lead's field map plus the
// built-in {name} placeholder.
func RenderForLead(template string, lead *model.Lead) string {
	data := make(map[string]string, len(lead.Fields)+1)
	for k, v := range lead.Fields {
		data[k] = v
	}
	if _, ok := data["name"]; !ok {
		data["name"] = lead.DisplayName
	}
	return RenderTemplate(template, data)
}
