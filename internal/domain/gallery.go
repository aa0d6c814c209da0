package domain

import "time"

// GalleryItem is the persisted metadata of a saved generated image.
type GalleryItem struct {
	ID          string    `json:"id"`
	FirebaseUID string    `json:"firebaseUid"`
	ImageURL    string    `json:"imageUrl"`
	StoragePath string    `json:"storagePath"`
	StyleName   string    `json:"styleName"`
	ColorName   string    `json:"colorName"`
	RefineText  string    `json:"refineText"`
	CreatedAt   time.Time `json:"createdAt"`
}
