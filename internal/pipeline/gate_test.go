package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/urbeneye/leadsync/internal/model"
)

func TestGate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		lead     model.Lead
		accepted bool
		reason   string
	}{
		{"both", model.Lead{CustomerEmail: "a@b.es", CustomerPhone: "612345678"}, true, "email and phone"},
		{"email only", model.Lead{CustomerEmail: "a@b.es"}, true, "email"},
		{"phone only", model.Lead{CustomerPhone: "612345678"}, true, "phone"},
		{"neither", model.Lead{CustomerName: "Ana", Message: "hola"}, false, "no contact signal"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Gate(tc.lead)
			assert.Equal(t, tc.accepted, got.Accepted)
			assert.Equal(t, tc.reason, got.Reason)
		})
	}
}
