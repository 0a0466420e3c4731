package models

import "time"

// ProcessedImage describes one stored rendition of an uploaded image.
type ProcessedImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int    `json:"size"`
}

// UploadManifest is the complete result of one upload: one ProcessedImage
// per resolution tier, all sharing a single generated file name.
type UploadManifest struct {
	OriginalName string                    `json:"originalName"`
	FileName     string                    `json:"fileName"`
	Resolutions  map[string]ProcessedImage `json:"resolutions"`
}

type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type Painting struct {
	ID         int64           `json:"id" db:"id"`
	Name       string          `json:"name" db:"name"`
	Price      float64         `json:"price" db:"price"`
	Medium     string          `json:"medium" db:"medium"`
	Size       string          `json:"size" db:"size"`
	IsFramed   bool            `json:"isFramed" db:"is_framed"`
	CategoryID int64           `json:"categoryId" db:"category_id"`
	Category   *Category       `json:"category,omitempty"`
	Image      *UploadManifest `json:"image,omitempty"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time       `json:"updatedAt" db:"updated_at"`
}
