package models

// Usage mirrors the token accounting reported by the completion service.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Summary is a generated IRAC brief as returned to clients and stored in the cache.
type Summary struct {
	Analysis string `json:"analysis"`
	Model    string `json:"model"`
	Usage    *Usage `json:"usage,omitempty"`
}
