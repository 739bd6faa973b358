package handlers

import (
	"leadcrm/internal/models"
	"testing"
)

func TestFillTemplate(t *testing.T) {
	t.Parallel()

	lead := &models.Lead{
		CompanyName:    "Acme Conferences",
		Industry:       "Events",
		Country:        "Vietnam",
		City:           "Danang",
		KeyPersonName:  "Tran Minh",
		KeyPersonTitle: "Conference Director",
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "substitutes all placeholders",
			in:   "Dear {{key_person_name}} ({{key_person_title}}), greetings from {{city}}, {{country}} to {{company_name}}!",
			want: "Dear Tran Minh (Conference Director), greetings from Danang, Vietnam to Acme Conferences!",
		},
		{
			name: "text without placeholders is unchanged",
			in:   "Hello there",
			want: "Hello there",
		},
		{
			name: "unknown placeholders are left alone",
			in:   "Hi {{first_name}} from {{company_name}}",
			want: "Hi {{first_name}} from Acme Conferences",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := fillTemplate(tt.in, lead); got != tt.want {
				t.Errorf("fillTemplate() = %q, want %q", got, tt.want)
			}
		})
	}
}
