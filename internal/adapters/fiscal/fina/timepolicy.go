package fina

import "time"

// Wire formats mandated by the CIS protocol. Local time of the issuing
// jurisdiction, no fractional seconds, no offset.
const (
	zkiTimeLayout = "20060102_150405"
	xmlTimeLayout = "02.01.2006T15:04:05"
)

// TimePolicy converts instants into the local textual forms the protocol
// requires. It is injected rather than read from process configuration so
// formatting can be tested in isolation.
type TimePolicy struct {
	Location *time.Location
}

// ZKITimestamp renders t for the protective-code canonical string.
func (p TimePolicy) ZKITimestamp(t time.Time) string {
	return t.In(p.Location).Format(zkiTimeLayout)
}

// XMLTimestamp renders t for DatumVrijeme/DatVrijeme elements.
func (p TimePolicy) XMLTimestamp(t time.Time) string {
	return t.In(p.Location).Format(xmlTimeLayout)
}
