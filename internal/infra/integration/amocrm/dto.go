package amocrm

import (
	"bytes"
	"strconv"
)

// FlexString absorbs amoCRM's habit of sending the same field as a JSON
// string in webhooks and as a number in REST responses.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := unquote(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(b)
	return nil
}

func unquote(b []byte, s *string) error {
	v, err := strconv.Unquote(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (f FlexString) String() string { return string(f) }

// Int64 parses the value as a decimal id; malformed or empty values map
// to zero.
func (f FlexString) Int64() int64 {
	v, _ := strconv.ParseInt(string(f), 10, 64)
	return v
}

// Float64 parses the value as a number; malformed or empty values map to
// zero.
func (f FlexString) Float64() float64 {
	v, _ := strconv.ParseFloat(string(f), 64)
	return v
}

type User struct {
	ID    FlexString `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
}

type Lead struct {
	ID                FlexString    `json:"id" validate:"required"`
	Name              string        `json:"name"`
	Price             FlexString    `json:"price"`
	ResponsibleUserID FlexString    `json:"responsible_user_id"`
	StatusID          FlexString    `json:"status_id"`
	PipelineID        FlexString    `json:"pipeline_id"`
	CreatedAt         FlexString    `json:"created_at"`
	UpdatedAt         FlexString    `json:"updated_at"`
	Embedded          *LeadEmbedded `json:"_embedded,omitempty"`
}

type LeadEmbedded struct {
	Contacts  []EntityRef `json:"contacts"`
	Companies []EntityRef `json:"companies"`
}

type EntityRef struct {
	ID FlexString `json:"id"`
}

type Contact struct {
	ID                 FlexString    `json:"id"`
	Name               string        `json:"name"`
	FirstName          string        `json:"first_name"`
	LastName           string        `json:"last_name"`
	CustomFieldsValues []CustomField `json:"custom_fields_values"`
}

type CustomField struct {
	FieldID   int64              `json:"field_id"`
	FieldName string             `json:"field_name"`
	FieldCode string             `json:"field_code"`
	Values    []CustomFieldValue `json:"values"`
}

type CustomFieldValue struct {
	Value    FlexString `json:"value"`
	EnumID   int64      `json:"enum_id,omitempty"`
	EnumCode string     `json:"enum_code,omitempty"`
}

type Company struct {
	ID   FlexString `json:"id"`
	Name string     `json:"name"`
}

type Pipeline struct {
	ID       FlexString       `json:"id"`
	Name     string           `json:"name"`
	Embedded PipelineEmbedded `json:"_embedded"`
}

type PipelineEmbedded struct {
	Statuses []PipelineStatus `json:"statuses"`
}

type PipelineStatus struct {
	ID   FlexString `json:"id"`
	Name string     `json:"name"`
}
