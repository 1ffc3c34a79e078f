package domain

type Location struct {
	City  string `json:"city"`
	Count int    `json:"count"`
}

type MediaFile struct {
	FileID       string `json:"file_id"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}
