package models

// ScoreStats summarises the sentiment column of a table.
type ScoreStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// StatusResponse is returned by /api/status
type StatusResponse struct {
	SessionID   string      `json:"session_id"`
	Rows        int         `json:"rows"`
	Columns     int         `json:"columns"`
	ColumnNames []string    `json:"column_names"`
	Products    []string    `json:"products"`
	Scores      *ScoreStats `json:"scores,omitempty"`
	ChatTurns   int         `json:"chat_turns"`
}

// ReviewRow is the JSON shape of one record.
type ReviewRow struct {
	Product        string            `json:"product"`
	SentimentScore float64           `json:"sentiment_score"`
	ReviewDate     Date              `json:"review_date"`
	ShippingDate   Date              `json:"shipping_date"`
	Fields         map[string]string `json:"fields"`
}

// ReviewsResponse for /api/reviews
type ReviewsResponse struct {
	Product string      `json:"product"`
	Rows    int         `json:"rows"`
	Data    []ReviewRow `json:"data"`
}

// CategoryMeanItem is one bar of the sentiment chart.
type CategoryMeanItem struct {
	Product string  `json:"product"`
	Mean    float64 `json:"mean"`
	Count   int     `json:"count"`
}

// SentimentChartResponse for /api/charts/sentiment
type SentimentChartResponse struct {
	Means []CategoryMeanItem `json:"means"`
}

// DistributionResponse for /api/charts/distribution
type DistributionResponse struct {
	Product string    `json:"product"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
	Edges   []float64 `json:"edges"`
	Counts  []int     `json:"counts"`
}

// ChatRequest for POST /api/chat
type ChatRequest struct {
	Question string `json:"question"`
}

// ChatResponse for /api/chat
type ChatResponse struct {
	Reply      string     `json:"reply,omitempty"`
	Transcript Transcript `json:"transcript"`
}

// ErrorResponse is the JSON body of a failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}
