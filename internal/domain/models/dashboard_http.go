package models

// Query models for the dashboard HTTP endpoints.

type SignalsRequest struct {
	Limit int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
	Pair  string `query:"pair" json:"pair" validate:"omitempty,alphanum,max=20"`
}

type HeatmapRequest struct {
	Dense bool `query:"dense" json:"dense"`
}

// HeatmapResponse is the long-form heatmap consumed by chart widgets.
type HeatmapResponse struct {
	Days  [7]string     `json:"days"`
	Cells []HeatmapCell `json:"cells"`
	Total int           `json:"total"`
}
