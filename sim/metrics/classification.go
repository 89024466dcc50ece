// Package metrics scores classifier predictions against true labels.
package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Accuracy returns the fraction of positions where yPred equals yTrue.
// Returns 0 for empty or mismatched inputs.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// Labels returns the sorted union of labels seen in either slice.
func Labels(yTrue, yPred []int) []int {
	seen := make(map[int]struct{})
	for _, y := range yTrue {
		seen[y] = struct{}{}
	}
	for _, y := range yPred {
		seen[y] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for y := range seen {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

// ConfusionMatrix holds counts indexed [true][predicted] over Labels.
type ConfusionMatrix struct {
	Labels []int
	Counts [][]int
}

// NewConfusionMatrix counts predictions per (true, predicted) label pair.
func NewConfusionMatrix(yTrue, yPred []int) (*ConfusionMatrix, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("label length mismatch: %d true, %d predicted", len(yTrue), len(yPred))
	}
	labels := Labels(yTrue, yPred)
	index := make(map[int]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for i := range yTrue {
		counts[index[yTrue[i]]][index[yPred[i]]]++
	}
	return &ConfusionMatrix{Labels: labels, Counts: counts}, nil
}

// ClassScores are the one-vs-rest scores for a single label.
type ClassScores struct {
	Label     int
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// AverageScores are averaged scores over all labels.
type AverageScores struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// ClassificationReport summarizes per-class and averaged scores.
type ClassificationReport struct {
	Classes     []ClassScores
	Accuracy    float64
	MacroAvg    AverageScores
	WeightedAvg AverageScores
	Digits      int
}

// NewClassificationReport scores predictions. Undefined precision or recall
// (no predicted or no true samples for a label) is reported as 0 with a warning.
func NewClassificationReport(yTrue, yPred []int) (*ClassificationReport, error) {
	if len(yTrue) == 0 {
		return nil, fmt.Errorf("classification report needs at least one sample")
	}
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	r := &ClassificationReport{Accuracy: Accuracy(yTrue, yPred), Digits: 2}
	total := len(yTrue)
	for i, label := range cm.Labels {
		tp := cm.Counts[i][i]
		predicted, support := 0, 0
		for k := range cm.Labels {
			predicted += cm.Counts[k][i]
			support += cm.Counts[i][k]
		}
		cs := ClassScores{Label: label, Support: support}
		if predicted > 0 {
			cs.Precision = float64(tp) / float64(predicted)
		} else {
			logrus.Warnf("precision is ill-defined for label %d (no predicted samples); reporting 0", label)
		}
		if support > 0 {
			cs.Recall = float64(tp) / float64(support)
		} else {
			logrus.Warnf("recall is ill-defined for label %d (no true samples); reporting 0", label)
		}
		if cs.Precision+cs.Recall > 0 {
			cs.F1 = 2 * cs.Precision * cs.Recall / (cs.Precision + cs.Recall)
		}
		r.Classes = append(r.Classes, cs)

		n := float64(len(cm.Labels))
		w := float64(support) / float64(total)
		r.MacroAvg.Precision += cs.Precision / n
		r.MacroAvg.Recall += cs.Recall / n
		r.MacroAvg.F1 += cs.F1 / n
		r.WeightedAvg.Precision += cs.Precision * w
		r.WeightedAvg.Recall += cs.Recall * w
		r.WeightedAvg.F1 += cs.F1 * w
	}
	r.MacroAvg.Support = total
	r.WeightedAvg.Support = total
	return r, nil
}

// String renders the report in the familiar fixed-width text layout:
//
//	              precision    recall  f1-score   support
//
//	           0       0.50      0.49      0.50       104
//	...
func (r *ClassificationReport) String() string {
	const lastLine = "weighted avg"
	width := len(lastLine)
	for _, c := range r.Classes {
		if l := len(strconv.Itoa(c.Label)); l > width {
			width = l
		}
	}
	d := r.Digits

	var b strings.Builder
	fmt.Fprintf(&b, "%*s  %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		fmt.Fprintf(&b, "%*d  %9.*f %9.*f %9.*f %9d\n", width, c.Label, d, c.Precision, d, c.Recall, d, c.F1, c.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s  %9s %9s %9.*f %9d\n", width, "accuracy", "", "", d, r.Accuracy, r.MacroAvg.Support)
	for _, row := range []struct {
		name string
		avg  AverageScores
	}{{"macro avg", r.MacroAvg}, {lastLine, r.WeightedAvg}} {
		fmt.Fprintf(&b, "%*s  %9.*f %9.*f %9.*f %9d\n", width, row.name, d, row.avg.Precision, d, row.avg.Recall, d, row.avg.F1, row.avg.Support)
	}
	return b.String()
}
