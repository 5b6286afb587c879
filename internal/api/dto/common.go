package dto

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

// ListResponse wraps collections so fields can be added next to the data
// without breaking clients.
type ListResponse struct {
	Data  interface{} `json:"data"`
	Total int         `json:"total"`
}
