package model

import "time"

// Defaults for folders materialized as a share destination.
const (
	DefaultFolderIcon  = "📁"
	DefaultFolderColor = "#667eea"
)

// Folder groups an owner's content. (OwnerID, Name) is unique.
type Folder struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	Color     string    `json:"color"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}
