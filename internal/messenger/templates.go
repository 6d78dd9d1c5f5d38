package messenger

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fieldtrack/tracker-be/internal/messenger/domain"
)

// Template keys understood by the renderer. These match what the tracker
// service queues.
const (
	TemplateSpecialistWaiting = "specialist_waiting"
	TemplateWorkStarted       = "work_started"
	TemplateOrderCancelled    = "order_cancelled"
)

// templates maps template key to per-language message bodies. Variables
// use {name} placeholders.
var templates = map[string]map[string]string{
	TemplateSpecialistWaiting: {
		"en": "Your specialist has arrived for order {order_number} and is waiting for you. Please meet them within {wait_minutes} minutes.",
		"es": "Su especialista ha llegado para el pedido {order_number} y le está esperando. Por favor acuda en {wait_minutes} minutos.",
	},
	TemplateWorkStarted: {
		"en": "Work on your order {order_number} has started.",
		"es": "El trabajo de su pedido {order_number} ha comenzado.",
	},
	TemplateOrderCancelled: {
		"en": "Your order {order_number} has been cancelled. Reason: {reason}.",
		"es": "Su pedido {order_number} ha sido cancelado. Motivo: {reason}.",
	},
}

var placeholderPattern = regexp.MustCompile(`\{[a-z_]+\}`)

// renderTemplate resolves the template body for a key and language and
// substitutes the variables. Unknown languages fall back to the default;
// unknown keys and unresolved placeholders are errors so bad producers
// surface instead of sending literal braces to a customer.
func renderTemplate(key, language, defaultLanguage string, variables map[string]string) (string, error) {
	byLanguage, ok := templates[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownTemplate, key)
	}

	body, ok := byLanguage[language]
	if !ok {
		body, ok = byLanguage[defaultLanguage]
	}
	if !ok {
		body, ok = byLanguage["en"]
	}
	if !ok {
		return "", fmt.Errorf("%w: %s has no usable language", domain.ErrUnknownTemplate, key)
	}

	for name, value := range variables {
		body = strings.ReplaceAll(body, "{"+name+"}", value)
	}
	if missing := placeholderPattern.FindAllString(body, -1); len(missing) > 0 {
		return "", fmt.Errorf("%w: template %s missing variables %s",
			domain.ErrInvalidMessage, key, strings.Join(missing, ", "))
	}
	return body, nil
}
