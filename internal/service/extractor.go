// internal/service/extractor.go
package service

import (
	"strings"

	"github.com/funnelreach/dispatch-backend/internal/model"
)

// Field detection is by declared type first, then by key substring. Funnel
// authors name fields freely (and often in Portuguese), so the key patterns
// carry both languages.
var (
	phoneKeys    = []string{"phone", "tel", "whats", "celular", "fone"}
	emailKeys    = []string{"email", "e-mail", "mail"}
	telegramKeys = []string{"telegram", "chat_id", "tg_id"}
	nameKeys     = []string{"name", "nome"}
)

// ExtractLead turns one raw response into a normalized lead. It is pure and
// deterministic: the same response always yields the same lead, which is
// what lets repeated scans over the same window stay dedup-safe. The first
// matching answer per category wins, in declaration order. Returns false
// when no usable contact handle (phone, email, or telegram id) exists.
func ExtractLead(resp *model.Response) (*model.Lead, bool) {
	lead := &model.Lead{
		AudienceClass: resp.CompletionState,
		SubmittedAt:   resp.SubmittedAt,
		Fields:        make(map[string]string, len(resp.Answers)),
	}

	for _, a := range resp.Answers {
		value := strings.TrimSpace(a.Value)
		if value == "" {
			continue
		}

		// First occurrence of a field name wins in the field map too.
		if _, seen := lead.Fields[a.Field]; !seen {
			lead.Fields[a.Field] = value
		}

		key := strings.ToLower(a.Field)
		declared := strings.ToLower(a.Type)

		switch {
		case lead.Phone == "" && (declared == "phone" || declared == "tel" || matchesAny(key, phoneKeys)):
			lead.Phone = normalizePhone(value)
		case lead.Email == "" && (declared == "email" || matchesAny(key, emailKeys)):
			if strings.Contains(value, "@") {
				lead.Email = value
			}
		case lead.Telegram == "" && matchesAny(key, telegramKeys):
			lead.Telegram = value
		case lead.DisplayName == "" && (declared == "name" || matchesAny(key, nameKeys)):
			lead.DisplayName = value
		}
	}

	if lead.Phone == "" && lead.Email == "" && lead.Telegram == "" {
		return nil, false
	}
	return lead, true
}

func matchesAny(key string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(key, p) {
			return true
		}
	}
	return false
}

// normalizePhone strips formatting so the same number always produces the
// same contact handle regardless of how the respondent typed it.
func normalizePhone(v string) string {
	var b strings.Builder
	for i, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
