package model

// Child is a read-only snapshot of a child profile on the platform.
// IDs are platform-assigned and unique; they are never re-validated here.
type Child struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	UserID          string `json:"user_id,omitempty"`
	InstitutionName string `json:"institution_name,omitempty"`
	InstitutionCode string `json:"institution_code,omitempty"`
}
