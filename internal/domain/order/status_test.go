package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_Matrix(t *testing.T) {
	allowed := map[Status]map[Status]bool{
		StatusPending:   {StatusConfirmed: true, StatusCancelled: true},
		StatusConfirmed: {StatusShipped: true, StatusCancelled: true},
		StatusShipped:   {StatusDelivered: true},
	}

	for _, from := range Statuses() {
		for _, to := range Statuses() {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				got, err := Transition(from, to)
				if allowed[from][to] {
					require.NoError(t, err)
					assert.Equal(t, to, got)
					return
				}
				require.ErrorIs(t, err, ErrInvalidTransition)
				assert.Empty(t, got)
			})
		}
	}
}

func TestTransition_TerminalMessage(t *testing.T) {
	_, err := Transition(StatusDelivered, StatusDelivered)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, "cannot change status of order in final state DELIVERED", err.Error())

	_, err = Transition(StatusCancelled, StatusPending)
	assert.Equal(t, "cannot change status of order in final state CANCELLED", err.Error())
}

func TestTransition_UnknownStatus(t *testing.T) {
	_, err := Transition(StatusPending, Status("LOST"))
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, `unknown status "LOST"`, err.Error())

	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, StatusPending, te.From)
}

func TestTransition_NotInTable(t *testing.T) {
	_, err := Transition(StatusPending, StatusShipped)
	assert.EqualError(t, err, "cannot change status from PENDING to SHIPPED")
}

func TestStatus_Predicates(t *testing.T) {
	tests := []struct {
		status      Status
		terminal    bool
		cancellable bool
	}{
		{StatusPending, false, true},
		{StatusConfirmed, false, true},
		{StatusShipped, false, false},
		{StatusDelivered, true, false},
		{StatusCancelled, true, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.True(t, tt.status.Valid())
			assert.Equal(t, tt.terminal, tt.status.Terminal())
			assert.Equal(t, tt.cancellable, tt.status.CanBeCancelled())
			if tt.terminal {
				assert.Empty(t, AllowedTransitions(tt.status))
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus(" SHIPPED ")
	require.True(t, ok)
	assert.Equal(t, StatusShipped, st)

	for _, raw := range []string{"", "shipped", "Pending", "UNKNOWN"} {
		_, ok := ParseStatus(raw)
		assert.False(t, ok, raw)
	}
}

func TestStatuses_CanonicalOrder(t *testing.T) {
	assert.Equal(t, []Status{
		StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled,
	}, Statuses())
}
