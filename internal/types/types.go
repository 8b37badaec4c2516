package types

// Label is the ground truth of a sample, derived from the directory it was listed from.
type Label int

const (
	Negative Label = iota
	Positive
)

func (l Label) String() string {
	if l == Positive {
		return "positive"
	}
	return "negative"
}

// Sample is a single image queued for classification.
type Sample struct {
	Path  string
	Label Label
}

// SampleTask represents a single sample sent to a worker for detection
type SampleTask struct {
	Index  int
	Sample Sample
}
