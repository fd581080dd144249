package dto

// IntradaySnapshot is the live view of one symbol used by the gap-up jobs.
type IntradaySnapshot struct {
	Code        string   `json:"code"`
	PrevClose   *float64 `json:"prev_close"`
	PrevVolume  *float64 `json:"prev_volume"`
	DayOpen     *float64 `json:"day_open"`
	DayHigh     *float64 `json:"day_high"`
	LatestPrice *float64 `json:"latest_price"`
	CumVolume   *float64 `json:"cum_volume"`
}

// RunJobResponse is the reply of the manual job trigger endpoint.
type RunJobResponse struct {
	Job     string `json:"job"`
	Message string `json:"message"`
}
