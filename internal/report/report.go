// Package report renders evaluation results for terminals, web pages and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/andresmejia3/facecheck/internal/eval"
)

// Title heads the plaintext report.
const Title = "Haar Cascade Face Detection Accuracy Report"

// Text renders r in the fixed plaintext layout.
func Text(r eval.Report) string {
	var b strings.Builder
	fmt.Fprintln(&b, Title)
	fmt.Fprintln(&b, strings.Repeat("-", len(Title)))
	fmt.Fprintf(&b, "True Positives (TP): %d\n", r.TP)
	fmt.Fprintf(&b, "False Negatives (FN): %d\n", r.FN)
	fmt.Fprintf(&b, "True Negatives (TN): %d\n", r.TN)
	fmt.Fprintf(&b, "False Positives (FP): %d\n", r.FP)
	fmt.Fprintf(&b, "Accuracy: %.2f\n", r.Accuracy)
	fmt.Fprintf(&b, "Precision: %.2f\n", r.Precision)
	fmt.Fprintf(&b, "Recall: %.2f\n", r.Recall)
	fmt.Fprintf(&b, "F1 Score: %.2f\n", r.F1)
	return b.String()
}

// Metric is one headline value formatted as a percentage.
type Metric struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Summary returns accuracy, precision, recall and F1 as percentages with two decimals.
func Summary(r eval.Report) []Metric {
	return []Metric{
		{Name: "Accuracy", Value: Percent(r.Accuracy)},
		{Name: "Precision", Value: Percent(r.Precision)},
		{Name: "Recall", Value: Percent(r.Recall)},
		{Name: "F1 Score", Value: Percent(r.F1)},
	}
}

// Percent formats a ratio in [0,1] as e.g. "66.67%".
func Percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// Document is the machine-readable form of a report.
type Document struct {
	Detector string      `json:"detector,omitempty"`
	Report   eval.Report `json:"report"`
	Summary  []Metric    `json:"summary"`
}

// WriteJSON encodes r as an indented Document.
func WriteJSON(w io.Writer, detectorName string, r eval.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Document{Detector: detectorName, Report: r, Summary: Summary(r)})
}
