package notification

import (
	"fmt"
	"strings"
	"sync"
)

// Built-in template ids.
const (
	TplConsultationBooked    = "consultation-booked"
	TplConsultationCancelled = "consultation-cancelled"
	TplConsultationStatus    = "consultation-status"
	TplPrescriptionAdded     = "prescription-added"
	TplPaymentRequested      = "payment-requested"
)

// Template is a reusable notification with {{key}} placeholders in its
// title, message and url.
type Template struct {
	ID        string
	Title     string
	Message   string
	Type      Kind
	Icon      string
	TypeClass string
	URL       string
}

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:        TplConsultationBooked,
			Title:     "New consultation booked",
			Message:   "{{patient_name}} booked a {{service}} consultation on {{date}} at {{time}}.",
			Type:      KindSuccess,
			Icon:      "calendar-check",
			TypeClass: "success",
			URL:       "/consultations/{{consultation_id}}",
		},
		{
			ID:        TplConsultationCancelled,
			Title:     "Consultation cancelled",
			Message:   "The consultation on {{date}} at {{time}} has been cancelled.",
			Type:      KindWarning,
			Icon:      "calendar-times",
			TypeClass: "warning",
			URL:       "/consultations/{{consultation_id}}",
		},
		{
			ID:        TplConsultationStatus,
			Title:     "Consultation {{status}}",
			Message:   "Your consultation with {{specialist_name}} on {{date}} is now {{status}}.",
			Type:      KindInfo,
			Icon:      "stethoscope",
			TypeClass: "info",
			URL:       "/consultations/confirmation/{{booking_id}}",
		},
		{
			ID:        TplPrescriptionAdded,
			Title:     "New prescription",
			Message:   "{{specialist_name}} prescribed {{medication}}.",
			Type:      KindInfo,
			Icon:      "prescription",
			TypeClass: "primary",
			URL:       "/consultations/confirmation/{{booking_id}}",
		},
		{
			ID:        TplPaymentRequested,
			Title:     "Payment request sent",
			Message:   "Check your phone to approve the payment of KES {{amount}}.",
			Type:      KindInfo,
			Icon:      "mobile-alt",
			TypeClass: "primary",
			URL:       "/consultations/confirmation/{{booking_id}}",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render builds an unsaved Notification from a template. Keys present in the
// template but absent from data are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (*Notification, error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("template %q not found", templateID)
	}

	n := &Notification{
		Title:     t.Title,
		Message:   t.Message,
		Type:      t.Type,
		Icon:      t.Icon,
		TypeClass: t.TypeClass,
		URL:       t.URL,
	}
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		n.Title = strings.ReplaceAll(n.Title, placeholder, v)
		n.Message = strings.ReplaceAll(n.Message, placeholder, v)
		n.URL = strings.ReplaceAll(n.URL, placeholder, v)
	}
	return n, nil
}
