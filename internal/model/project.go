package model

import "time"

// Project is a tracked web property. Domain is the value matched against
// answer-engine citations; Country and Language are optional metadata used
// only for display.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	Country   string    `json:"country,omitempty"`
	Language  string    `json:"language,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
