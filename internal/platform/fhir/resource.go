package fhir

import "time"

type Meta struct {
	VersionID   string     `json:"versionId,omitempty"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Version string `json:"version,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// Object is a FHIR resource rendered as generic JSON.
type Object map[string]interface{}

func (o Object) ResourceType() string {
	s, _ := o["resourceType"].(string)
	return s
}

func (o Object) ResourceID() string {
	s, _ := o["id"].(string)
	return s
}
