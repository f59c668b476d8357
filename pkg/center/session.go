package center

// Pair holds the file indices of the two reference projections
type Pair struct {
	Index0   int
	Index180 int
}

// Session is the persisted configuration of a Resolver. Field names follow
// the "center rotation" section of the session file.
type Session struct {
	Enabled     bool     `yaml:"state" json:"state"`
	Index0      int      `yaml:"image 0 file index" json:"image_0_file_index"`
	Index180    int      `yaml:"image 180 file index" json:"image_180_file_index"`
	Strategy    Strategy `yaml:"algorithm selected" json:"algorithm_selected"`
	ManualValue int      `yaml:"user value" json:"user_value"`
}

// Pair returns the reference pair stored in the session
func (s Session) Pair() Pair {
	return Pair{Index0: s.Index0, Index180: s.Index180}
}
