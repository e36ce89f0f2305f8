package model

// Position is the printed measure number under the cursor and the one after
// it (the same number at the last measure).
type Position struct {
	Current   int
	Lookahead int
}

type Cursor struct {
	MeasureIndex int
	GroupIndex   int
	Satisfied    Notes
	// Set once the last group of the last measure has been satisfied.
	Finished bool
}
