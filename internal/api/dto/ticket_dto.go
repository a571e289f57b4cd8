package dto

import (
	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/ticket"
	"github.com/spec-kit/support-portal/internal/upload"
)

// CreateTicketRequest payload. Field names follow the browser form.
type CreateTicketRequest struct {
	MainCategory  string `json:"mainCategory"`
	SubDepartment string `json:"subDepartment"`
	Subject       string `json:"subject"`
	Description   string `json:"description"`
	GuestName     string `json:"guestName"`
	GuestPhone    string `json:"guestPhone"`
	GuestEmail    string `json:"guestEmail"`
}

// Form converts the payload to the lifecycle form.
func (r CreateTicketRequest) Form() ticket.Form {
	return ticket.Form{
		MainCategory:  r.MainCategory,
		SubDepartment: r.SubDepartment,
		Subject:       r.Subject,
		Description:   r.Description,
		GuestName:     r.GuestName,
		GuestPhone:    r.GuestPhone,
		GuestEmail:    r.GuestEmail,
	}
}

// VerifyTicketRequest payload.
type VerifyTicketRequest struct {
	Code string `json:"code"`
}

// RateTicketRequest payload.
type RateTicketRequest struct {
	Rating domain.Rating `json:"rating"`
}

// UploadReportResponse summarizes the attachment handoff.
type UploadReportResponse struct {
	Succeeded []string            `json:"succeeded"`
	Failed    []string            `json:"failed,omitempty"`
	Skipped   bool                `json:"skipped"`
	Files     []upload.FileResult `json:"files"`
	Notice    string              `json:"notice,omitempty"`
}

// VerifyTicketResponse is returned once a ticket is verified.
type VerifyTicketResponse struct {
	Ticket  domain.VerifiedTicket `json:"ticket"`
	Message string                `json:"message"`
	Upload  UploadReportResponse  `json:"upload"`
}

// StagedAttachmentResponse lists the files waiting for verification.
type StagedAttachmentResponse struct {
	Pending []string `json:"pending"`
}
