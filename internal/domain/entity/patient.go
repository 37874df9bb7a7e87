package entity

import "time"

// Patient is the signer of a document. Provisioning lives in the intake
// collaborator; the engine only reads and find-or-creates by contact info.
type Patient struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	DOB       string    `json:"dob,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
