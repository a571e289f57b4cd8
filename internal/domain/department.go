package domain

// Department is a main topic or a sub-department used to route tickets.
type Department struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parentId,omitempty"`
}

// FAQTranslation is a localized variant of an FAQ entry.
type FAQTranslation struct {
	Lang   string `json:"lang"`
	Text   string `json:"text"`
	Answer string `json:"answer"`
}

// FAQ is a frequently asked question with its answer.
type FAQ struct {
	ID           string           `json:"id"`
	Text         string           `json:"text"`
	Answer       string           `json:"answer"`
	DepartmentID string           `json:"departmentId"`
	Translations []FAQTranslation `json:"translations,omitempty"`
}

// FAQPage is an FAQ listing with attachment tokens keyed by FAQ id.
type FAQPage struct {
	FAQs        []FAQ               `json:"faqs"`
	Attachments map[string][]string `json:"attachments"`
}
