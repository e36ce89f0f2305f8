package model

type ScoreMetadata struct {
	Title    string `json:"title"`
	Composer string `json:"composer"`
	Year     uint   `json:"year,omitempty"`
}

type ScoreID = uint32
type ScoreLibrary = map[ScoreID]string
