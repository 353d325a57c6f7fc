package models

type ScreenResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	DocumentCount int    `json:"document_count"`
}

type ResultResponse struct {
	ID           string         `json:"id"`
	Status       string         `json:"status"`
	Results      []ResultRecord `json:"results,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
}
