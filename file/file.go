package file

import (
	"github.com/jsphweid/sightreader/model"
	"github.com/jsphweid/sightreader/util"
)

func CreateScoreLibrary(paths []string) model.ScoreLibrary {
	res := make(model.ScoreLibrary)
	for i, v := range paths {
		res[uint32(i)] = v
	}
	return res
}

// LoadScoreLibrary numbers every score file under dir.
func LoadScoreLibrary(dir string) (model.ScoreLibrary, error) {
	paths, err := util.GatherAllMidiPaths(dir, 0)
	if err != nil {
		return nil, err
	}
	return CreateScoreLibrary(paths), nil
}

// Listing returns the library ordered by id.
func Listing(lib model.ScoreLibrary) []model.ScoreListing {
	res := make([]model.ScoreListing, 0, len(lib))
	for _, id := range util.SortedKeys(lib) {
		res = append(res, model.ScoreListing{ID: id, Path: lib[id]})
	}
	return res
}
