package models

import "fmt"

// Rejection is an expected, non-fatal exclusion of a listing.
type Rejection struct {
	Code    string
	Message string
}

func (r *Rejection) String() string { return r.Code + ": " + r.Message }

// Business rule rejections.
var (
	RejectExchange = &Rejection{Code: "E001", Message: "Exchange entries are not valid"}
	RejectWBS      = &Rejection{Code: "E002", Message: "WBS entries are not valid"}
)

// TransportError reports a request that could not complete.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string { return "transport: " + e.URL + ": " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// MalformedPageError reports a page missing an expected key or not
// decodable at all.
type MalformedPageError struct {
	URL   string
	Field string
	Err   error
}

func (e *MalformedPageError) Error() string {
	msg := "malformed page"
	if e.URL != "" {
		msg += " " + e.URL
	}
	if e.Field != "" {
		msg += ": missing " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedPageError) Unwrap() error { return e.Err }

// MalformedListingError reports a listing missing a required field.
type MalformedListingError struct {
	ID    string
	Field string
}

func (e *MalformedListingError) Error() string {
	return fmt.Sprintf("malformed listing %q: missing %s", e.ID, e.Field)
}
