package desk

import "fmt"

// Messages holds every user-facing string the desk sends. Fields left empty
// in configuration fall back to the locale defaults.
type Messages struct {
	MenuPrompt       string `json:"menu_prompt,omitempty" yaml:"menu_prompt,omitempty"`
	CreateLabel      string `json:"create_label,omitempty" yaml:"create_label,omitempty"`
	ViewLabel        string `json:"view_label,omitempty" yaml:"view_label,omitempty"`
	TicketPrompt     string `json:"ticket_prompt,omitempty" yaml:"ticket_prompt,omitempty"`
	TicketSaved      string `json:"ticket_saved,omitempty" yaml:"ticket_saved,omitempty"`
	TicketSaveFailed string `json:"ticket_save_failed,omitempty" yaml:"ticket_save_failed,omitempty"`
	UseMenu          string `json:"use_menu,omitempty" yaml:"use_menu,omitempty"`
	AccessDenied     string `json:"access_denied,omitempty" yaml:"access_denied,omitempty"`
	NoTickets        string `json:"no_tickets,omitempty" yaml:"no_tickets,omitempty"`
	TicketFrom       string `json:"ticket_from,omitempty" yaml:"ticket_from,omitempty"`
	ContentLabel     string `json:"content_label,omitempty" yaml:"content_label,omitempty"`
	ContactLabel     string `json:"contact_label,omitempty" yaml:"contact_label,omitempty"`
	ResolveLabel     string `json:"resolve_label,omitempty" yaml:"resolve_label,omitempty"`
	ContactNotice    string `json:"contact_notice,omitempty" yaml:"contact_notice,omitempty"`
	ContactSent      string `json:"contact_sent,omitempty" yaml:"contact_sent,omitempty"`
	ContactFailed    string `json:"contact_failed,omitempty" yaml:"contact_failed,omitempty"`
	TicketResolved   string `json:"ticket_resolved,omitempty" yaml:"ticket_resolved,omitempty"`
	TicketNotFound   string `json:"ticket_not_found,omitempty" yaml:"ticket_not_found,omitempty"`
	UnknownAction    string `json:"unknown_action,omitempty" yaml:"unknown_action,omitempty"`
	Unavailable      string `json:"unavailable,omitempty" yaml:"unavailable,omitempty"`
}

// EnglishMessages returns the default English texts.
func EnglishMessages() Messages {
	return Messages{
		MenuPrompt:       "Choose an action:",
		CreateLabel:      "Create ticket",
		ViewLabel:        "View tickets",
		TicketPrompt:     "Please enter the text of your ticket.",
		TicketSaved:      "Your ticket has been saved. A support specialist will contact you soon.",
		TicketSaveFailed: "Sorry, your ticket could not be saved. Please send it again.",
		UseMenu:          "Please use the menu buttons to navigate.",
		AccessDenied:     "You do not have access to this function.",
		NoTickets:        "There are no active tickets at the moment.",
		TicketFrom:       "Ticket from",
		ContentLabel:     "Content",
		ContactLabel:     "Contact user",
		ResolveLabel:     "Resolve",
		ContactNotice:    "A support specialist would like to contact you. Please reply to this message.",
		ContactSent:      "The message has been sent to the user. Await their reply.",
		ContactFailed:    "The message could not be delivered to the user.",
		TicketResolved:   "The ticket has been resolved and removed from the list.",
		TicketNotFound:   "Ticket not found.",
		UnknownAction:    "Unknown action.",
		Unavailable:      "The service is temporarily unavailable. Please try again later.",
	}
}

// RussianMessages returns the texts the bot shipped with originally.
func RussianMessages() Messages {
	return Messages{
		MenuPrompt:       "Выберите действие:",
		CreateLabel:      "Создать тикет",
		ViewLabel:        "Посмотреть тикеты",
		TicketPrompt:     "Пожалуйста, введите текст вашего тикета.",
		TicketSaved:      "Ваш тикет сохранён. Специалист технической поддержки скоро с вами свяжется.",
		TicketSaveFailed: "Не удалось сохранить тикет. Пожалуйста, отправьте его ещё раз.",
		UseMenu:          "Пожалуйста, используйте кнопки меню для навигации.",
		AccessDenied:     "У вас нет доступа к этой функции.",
		NoTickets:        "В данный момент активных тикетов нет.",
		TicketFrom:       "Тикет от",
		ContentLabel:     "Содержимое",
		ContactLabel:     "Связаться с пользователем",
		ResolveLabel:     "Выполнить",
		ContactNotice:    "Специалист техподдержки хочет с вами связаться. Пожалуйста, ответьте на это сообщение.",
		ContactSent:      "Сообщение пользователю отправлено. Ожидайте ответа.",
		ContactFailed:    "Не удалось доставить сообщение пользователю.",
		TicketResolved:   "Тикет успешно выполнен и удален из списка.",
		TicketNotFound:   "Тикет не найден.",
		UnknownAction:    "Неизвестное действие.",
		Unavailable:      "Сервис временно недоступен. Попробуйте позже.",
	}
}

// LocaleMessages returns the defaults for a locale code ("en", "ru").
func LocaleMessages(locale string) (Messages, error) {
	switch locale {
	case "", "en":
		return EnglishMessages(), nil
	case "ru":
		return RussianMessages(), nil
	}
	return Messages{}, fmt.Errorf("desk: unsupported locale %q", locale)
}

// WithDefaults returns m with every empty field taken from defaults.
func (m Messages) WithDefaults(defaults Messages) Messages {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&m.MenuPrompt, defaults.MenuPrompt)
	fill(&m.CreateLabel, defaults.CreateLabel)
	fill(&m.ViewLabel, defaults.ViewLabel)
	fill(&m.TicketPrompt, defaults.TicketPrompt)
	fill(&m.TicketSaved, defaults.TicketSaved)
	fill(&m.TicketSaveFailed, defaults.TicketSaveFailed)
	fill(&m.UseMenu, defaults.UseMenu)
	fill(&m.AccessDenied, defaults.AccessDenied)
	fill(&m.NoTickets, defaults.NoTickets)
	fill(&m.TicketFrom, defaults.TicketFrom)
	fill(&m.ContentLabel, defaults.ContentLabel)
	fill(&m.ContactLabel, defaults.ContactLabel)
	fill(&m.ResolveLabel, defaults.ResolveLabel)
	fill(&m.ContactNotice, defaults.ContactNotice)
	fill(&m.ContactSent, defaults.ContactSent)
	fill(&m.ContactFailed, defaults.ContactFailed)
	fill(&m.TicketResolved, defaults.TicketResolved)
	fill(&m.TicketNotFound, defaults.TicketNotFound)
	fill(&m.UnknownAction, defaults.UnknownAction)
	fill(&m.Unavailable, defaults.Unavailable)
	return m
}
