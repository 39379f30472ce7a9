package transport

import "time"

type SearchRequest struct {
	Query string   `form:"q" validate:"required,min=2,max=100"`
	Types []string `form:"type" validate:"omitempty,dive,oneof=order design_job work_order purchase_order"`
	Limit int      `form:"limit" validate:"omitempty,min=1,max=50"`
}

type SearchResultItem struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`     // "order", "design_job", "work_order", "purchase_order"
	Title        string    `json:"title"`    // Reference, title or PO number
	Subtitle     string    `json:"subtitle"` // Customer, priority or supplier
	Status       string    `json:"status"`
	Link         string    `json:"link"` // Frontend route
	Score        float64   `json:"score"`
	MatchedField string    `json:"matchedField"`
	CreatedAt    time.Time `json:"createdAt"`
}

type SearchResponse struct {
	Items []SearchResultItem `json:"items"`
	Total int                `json:"total"`
}
