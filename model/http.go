package model

type ErrorResponse struct {
	Error string `json:"detail"`
}

// LoadScoreRequest carries exactly one of Score, Path or ID.
type LoadScoreRequest struct {
	Score *Score  `json:"score,omitempty"`
	Path  string  `json:"path,omitempty"`
	ID    *uint32 `json:"id,omitempty"`
	Label string  `json:"label,omitempty"`
}

type LoadScoreResponse struct {
	LoadID   string `json:"load_id"`
	Source   string `json:"source"`
	Measures int    `json:"measures"`
	Groups   int    `json:"groups"`
}

type ScoreResponse struct {
	LoadID   string         `json:"load_id"`
	Source   string         `json:"source"`
	Measures int            `json:"measures"`
	Groups   int            `json:"groups"`
	Metadata *ScoreMetadata `json:"metadata,omitempty"`
}

type SeekRequest struct {
	Measure int `json:"measure"`
}

type PositionResponse struct {
	Current   int `json:"current"`
	Lookahead int `json:"lookahead"`
}

// InputRequest is the wire form of a PianoEvent.
type InputRequest struct {
	Kind     string `json:"kind"`
	Pitch    uint8  `json:"pitch,omitempty"`
	Velocity uint8  `json:"velocity,omitempty"`
	Pedal    string `json:"pedal,omitempty"`
	Position uint8  `json:"position,omitempty"`
}

type ScoreListing struct {
	ID   uint32 `json:"id"`
	Path string `json:"path"`
}

type CursorResponse struct {
	MeasureIndex int   `json:"measure_index"`
	GroupIndex   int   `json:"group_index"`
	Satisfied    []int `json:"satisfied"`
	Finished     bool  `json:"finished"`
	Group        []int `json:"group"`
}
