// Package api contains the versioned HTTP request contracts of SRI Pulse.
// Version v1 is the current stable API version. Validation tags are
// consumed by the go-playground validator registered in
// internal/middleware; handlers additionally Bind() the structural rules
// that tags cannot express.
package api

// Common request parameters

// PaginationRequest represents common pagination parameters.
type PaginationRequest struct {
	Page     int    `json:"page" query:"page" validate:"omitempty,min=1"`
	PageSize int    `json:"page_size" query:"page_size" validate:"omitempty,min=1,max=100"`
	Sort     string `json:"sort" query:"sort" validate:"omitempty,oneof=asc desc"`
}

// PeriodRangeRequest narrows a request to an inclusive dataset period
// range. Periods use the "YYYY-MM" form of the dataset file names.
type PeriodRangeRequest struct {
	From string `json:"from" query:"from" validate:"omitempty,yearmonth"`
	To   string `json:"to" query:"to" validate:"omitempty,yearmonth"`
}

// Operations API

// OperationStartRequest starts an ingest run. A zero Year means the full
// available range; Month narrows the run to one dataset and requires Year.
type OperationStartRequest struct {
	Type  string `json:"type" validate:"required,oneof=ingest"`
	Year  int    `json:"year,omitempty" validate:"omitempty,min=2000,max=2100"`
	Month string `json:"month,omitempty" validate:"omitempty,month"`
	Force bool   `json:"force,omitempty"`
}

// OperationListRequest filters the operation listing.
type OperationListRequest struct {
	PaginationRequest
	Status string `json:"status" query:"status" validate:"omitempty,oneof=pending running completed failed cancelled"`
	Type   string `json:"type" query:"type" validate:"omitempty,oneof=ingest"`
}

// Sales API

// ProvinceRequest addresses one province by name. Names are matched
// case-insensitively against the canonical uppercase form.
type ProvinceRequest struct {
	Province string `json:"province" param:"province" validate:"required,province"`
}
