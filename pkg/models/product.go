package models

// ProductInfo is structured product data extracted from a page.
type ProductInfo struct {
	Name         string `json:"name,omitempty"`
	Description  string `json:"description,omitempty"`
	Price        string `json:"price,omitempty"`
	Availability string `json:"availability,omitempty"`
	Brand        string `json:"brand,omitempty"`
	Rating       string `json:"rating,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	Platform     string `json:"platform,omitempty"`
	// RawData carries the source fragment the fields were derived from, for
	// debugging extraction quality.
	RawData string `json:"raw_data,omitempty"`
}

// ProductExtractionRequest asks for product extraction from a URL. Without a
// session id a temporary session is created for the request.
type ProductExtractionRequest struct {
	URL         string `json:"url"`
	SessionID   string `json:"session_id,omitempty"`
	KeepSession bool   `json:"keep_session,omitempty"`
}

// ProductExtractionResponse wraps the extraction outcome.
type ProductExtractionResponse struct {
	Success          bool         `json:"success"`
	SessionID        string       `json:"session_id,omitempty"`
	Product          *ProductInfo `json:"product,omitempty"`
	Error            string       `json:"error,omitempty"`
	ExtractionTimeMS int64        `json:"extraction_time_ms"`
}

// TextExtractionRequest asks for the readable text of a URL. Without a
// session id a temporary session is created for the request.
type TextExtractionRequest struct {
	URL         string `json:"url"`
	SessionID   string `json:"session_id,omitempty"`
	KeepSession bool   `json:"keep_session,omitempty"`
}

// TextExtractionResponse carries the cleaned page text and the detected
// storefront platform.
type TextExtractionResponse struct {
	Success          bool   `json:"success"`
	SessionID        string `json:"session_id,omitempty"`
	Text             string `json:"text,omitempty"`
	Platform         string `json:"platform,omitempty"`
	Error            string `json:"error,omitempty"`
	ExtractionTimeMS int64  `json:"extraction_time_ms"`
}

// ExtractRequest extracts arbitrary fields from the current page of a session
// using caller-supplied CSS selectors.
type ExtractRequest struct {
	Selectors map[string]string `json:"selectors"`
}

// ExtractResponse carries the extracted field values.
type ExtractResponse struct {
	Success bool              `json:"success"`
	Data    map[string]string `json:"data"`
}
