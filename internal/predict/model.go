package predict

// ModelInfo describes how predictions are produced.
type ModelInfo struct {
	ModelName       string   `json:"model_name"`
	ModelType       string   `json:"model_type"`
	MaxConfidence   float64  `json:"max_confidence"`
	Status          string   `json:"status"`
	PredictionNotes []string `json:"prediction_notes"`
}

// Info returns the description served to clients. Estimates are rule based;
// there is no trained model to report on.
func Info() ModelInfo {
	return ModelInfo{
		ModelName:     ModelName,
		ModelType:     "Rule-based appliance estimate",
		MaxConfidence: maxConfidence,
		Status:        "Using reliable calculation method",
		PredictionNotes: []string{
			"Consumption is estimated from AC, fridge and fan counts scaled by daily usage hours",
			"A previous bill between 50 and 2000 units replaces the estimate",
			"Bills are priced on the same slab table as /api/bill",
		},
	}
}
