package service

import (
	"xparking/internal/models"
)

// ComputeExitDecision maps a ticket to a gate decision. The reasons are
// ordered: a used ticket always reports TICKET_ALREADY_USED, an unpaid one
// PAYMENT_PENDING, and a paid ticket with outstanding overstay charges
// OVERSTAY_UNPAID. Only a fully paid ticket opens the barrier.
func ComputeExitDecision(ticket *models.Ticket) models.ExitDecision {
	if ticket == nil {
		return models.ExitDecision{Allow: false, Reason: models.ReasonTicketNotFound}
	}

	switch ticket.Status {
	case models.TicketUsed:
		return models.ExitDecision{Allow: false, Reason: models.ReasonTicketAlreadyUsed}
	case models.TicketPending:
		return models.ExitDecision{Allow: false, Reason: models.ReasonPaymentPending}
	case models.TicketPaid:
		if ticket.HasUnpaidOverstay() {
			return models.ExitDecision{Allow: false, Reason: models.ReasonOverstayUnpaid}
		}
		return models.ExitDecision{Allow: true}
	default:
		return models.ExitDecision{Allow: false, Reason: models.ReasonInvalidStatus}
	}
}
