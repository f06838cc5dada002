package types

// APIError is the JSON body of every failed request.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Errors  any    `json:"errors,omitempty"`
}

// Page is the paginator shape returned by list endpoints.
type Page[T any] struct {
	Data        []T   `json:"data"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	LastPage    int   `json:"last_page"`
}
