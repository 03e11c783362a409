package request

type ScrapeRequest struct {
	Source      string `json:"source"`
	ParcelID    string `json:"parcel_id"`
	ForceScrape bool   `json:"force_scrape"`
}

type BatchRequest struct {
	Source      string   `json:"source"`
	ParcelIDs   []string `json:"parcel_ids,omitempty"`
	StartID     int      `json:"start_id,omitempty"`
	EndID       int      `json:"end_id,omitempty"`
	ForceScrape bool     `json:"force_scrape"`
}
