package model

// HubStats is the health snapshot exposed to operators.
type HubStats struct {
	Status      string `json:"status"`
	Upstream    string `json:"upstream"`
	Subscribers int    `json:"subscribers"`
	Retained    int    `json:"retained"`
	Capacity    int    `json:"capacity"`
}
