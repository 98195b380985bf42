package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
)

// PatientRequest registers the visitor with the clinic backend. BirthDate is
// YYYY-MM-DD.
type PatientRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	CountryCode string `json:"country_code"`
	BirthDate   string `json:"birth_date"`
}

type Patient struct {
	ID string `json:"id"`
	PatientRequest
}

func (c *Client) CreatePatient(ctx context.Context, req PatientRequest) (Patient, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Patient{}, err
	}
	var out struct {
		ID json.RawMessage `json:"id"`
		PatientRequest
	}
	if err := c.do(ctx, "create patient", http.MethodPost, patientPath, nil, body, &out); err != nil {
		return Patient{}, err
	}
	return Patient{ID: rawID(out.ID), PatientRequest: out.PatientRequest}, nil
}

// rawID renders an id the backend may send as a number or a string.
func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if bytes.Equal(raw, []byte("null")) {
		return ""
	}
	return string(raw)
}
