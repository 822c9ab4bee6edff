package service

import (
	"testing"

	"xparking/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestComputeExitDecision(t *testing.T) {
	t.Run("NilTicket", func(t *testing.T) {
		d := ComputeExitDecision(nil)
		assert.False(t, d.Allow)
		assert.Equal(t, models.ReasonTicketNotFound, d.Reason)
	})

	t.Run("UsedTicket", func(t *testing.T) {
		d := ComputeExitDecision(&models.Ticket{Status: models.TicketUsed})
		assert.False(t, d.Allow)
		assert.Equal(t, models.ReasonTicketAlreadyUsed, d.Reason)
	})

	t.Run("PendingTicket", func(t *testing.T) {
		d := ComputeExitDecision(&models.Ticket{Status: models.TicketPending})
		assert.False(t, d.Allow)
		assert.Equal(t, models.ReasonPaymentPending, d.Reason)
	})

	t.Run("PaidWithUnpaidOverstay", func(t *testing.T) {
		d := ComputeExitDecision(&models.Ticket{
			Status:         models.TicketPaid,
			OverstayAmount: 5000,
		})
		assert.False(t, d.Allow)
		assert.Equal(t, models.ReasonOverstayUnpaid, d.Reason)
	})

	t.Run("PaidWithSettledOverstay", func(t *testing.T) {
		d := ComputeExitDecision(&models.Ticket{
			Status:         models.TicketPaid,
			OverstayAmount: 5000,
			OverstayPaid:   true,
		})
		assert.True(t, d.Allow)
		assert.Empty(t, d.Reason)
	})

	t.Run("PaidTicket", func(t *testing.T) {
		d := ComputeExitDecision(&models.Ticket{Status: models.TicketPaid})
		assert.True(t, d.Allow)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		d := ComputeExitDecision(&models.Ticket{Status: "bogus"})
		assert.False(t, d.Allow)
		assert.Equal(t, models.ReasonInvalidStatus, d.Reason)
	})
}
