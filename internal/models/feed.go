package models

import "time"

// RawOddsFeed is an undecoded-by-policy odds document as fetched from upstream.
// Events is the top-level JSON array decoded with json.Decoder.UseNumber.
type RawOddsFeed struct {
	SportKey    string
	Events      interface{}
	RetrievedAt time.Time
	Meta        map[string]string
}

// Sport is an entry from the upstream sports listing
type Sport struct {
	Key          string `json:"key"`
	Group        string `json:"group"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	HasOutrights bool   `json:"has_outrights"`
}
