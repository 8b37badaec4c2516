package eval

import "github.com/andresmejia3/facecheck/internal/types"

// Counts is the confusion matrix of one evaluation run.
type Counts struct {
	TP int `json:"tp"`
	FN int `json:"fn"`
	TN int `json:"tn"`
	FP int `json:"fp"`

	// Unreadable counts samples that failed to decode. They are already
	// folded into FN or TN; this is only a diagnostic.
	Unreadable int `json:"unreadable"`
}

// Record classifies one sample given the number of faces detected in it.
func (c *Counts) Record(label types.Label, faces int) {
	switch {
	case label == types.Positive && faces > 0:
		c.TP++
	case label == types.Positive:
		c.FN++
	case faces == 0:
		c.TN++
	default:
		c.FP++
	}
}

// Add returns the element-wise sum of c and o.
func (c Counts) Add(o Counts) Counts {
	return Counts{
		TP:         c.TP + o.TP,
		FN:         c.FN + o.FN,
		TN:         c.TN + o.TN,
		FP:         c.FP + o.FP,
		Unreadable: c.Unreadable + o.Unreadable,
	}
}

// Total is the number of classified samples.
func (c Counts) Total() int {
	return c.TP + c.FN + c.TN + c.FP
}

// Report is the final, read-only result of an evaluation.
type Report struct {
	Counts
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Report derives the metrics. A ratio whose denominator is zero is zero.
func (c Counts) Report() Report {
	precision := ratio(c.TP, c.TP+c.FP)
	recall := ratio(c.TP, c.TP+c.FN)

	var f1 float64
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	return Report{
		Counts:    c,
		Accuracy:  ratio(c.TP+c.TN, c.Total()),
		Precision: precision,
		Recall:    recall,
		F1:        f1,
	}
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
