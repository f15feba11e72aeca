package model

// Establishment is a venue from the FHRS hygiene-inspection registry.
// It is the candidate side of the linkage. Postcode is stored as published by
// the registry; normalization happens in the matching engine.
type Establishment struct {
	FHRSID          string `json:"fhrs_id"`
	BusinessName    string `json:"business_name"`
	BusinessType    string `json:"business_type,omitempty"`
	Postcode        string `json:"postcode"`
	Coord           *Coord `json:"coord,omitempty"`
	RatingValue     string `json:"rating_value,omitempty"`
	RatingDate      string `json:"rating_date,omitempty"`
	LocalAuthority  string `json:"local_authority,omitempty"`
	HygieneScore    *int   `json:"hygiene_score,omitempty"`
	StructuralScore *int   `json:"structural_score,omitempty"`
	ConfidenceScore *int   `json:"confidence_score,omitempty"`
}
