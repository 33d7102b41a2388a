package dto

// Response is the envelope of every JSON body the API writes
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo is the error half of the envelope. Details carries the context of
// a domain error, such as the expected and actual states of a conflict.
type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	Details   map[string]any     `json:"details,omitempty"`
	Fields    []ValidationDetail `json:"fields,omitempty"`
	RequestID string             `json:"requestId,omitempty"`
}

// ValidationDetail describes one rejected request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta describes the page a list response holds
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// Paged is OK with page metadata; a non-positive page size reports zero pages.
func Paged(data any, total int64, page, pageSize int) Response {
	meta := &Meta{Total: total, Page: page, PageSize: pageSize}
	if pageSize > 0 {
		meta.TotalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	r := OK(data)
	r.Meta = meta
	return r
}

// Fail builds an error envelope tagged with the request id
func Fail(code, message, requestID string) Response {
	return Response{Error: &ErrorInfo{Code: code, Message: message, RequestID: requestID}}
}

func (r Response) WithDetails(details map[string]any) Response {
	if r.Error != nil && len(details) > 0 {
		r.Error.Details = details
	}
	return r
}

func (r Response) WithFields(fields []ValidationDetail) Response {
	if r.Error != nil {
		r.Error.Fields = fields
	}
	return r
}

// Invalid is the 400 body listing the rejected fields
func Invalid(requestID string, fields []ValidationDetail) Response {
	return Fail(ErrCodeValidation, "Request validation failed", requestID).WithFields(fields)
}
