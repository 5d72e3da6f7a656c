package domain

import "time"

type Tour struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	Summary    string    `json:"summary"`
	ImageCover string    `json:"image_cover"`
	Price      float64   `json:"price"`
	CreatedAt  time.Time `json:"created_at"`
}
