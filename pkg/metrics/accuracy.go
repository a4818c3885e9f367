// Package metrics provides run metrics in two forms: classification
// accuracy figures computed after a run, and live Prometheus collectors
// updated while traffic flows.
//
// Accuracy figures follow the usual binary-classification definitions:
//   - Detection rate (TPR/recall)
//   - False positive rate
//   - Precision and specificity
//   - F1, F2, balanced accuracy and Matthews correlation
package metrics

import (
	"math"
	"sort"

	"github.com/wafbench/wbt/pkg/analyzer"
	"github.com/wafbench/wbt/pkg/traffic"
)

// ConfusionMatrix holds the fundamental counts for binary classification.
type ConfusionMatrix struct {
	TruePositives  int `json:"true_positives"`  // Attacks correctly blocked
	TrueNegatives  int `json:"true_negatives"`  // Legitimate requests correctly allowed
	FalsePositives int `json:"false_positives"` // Legitimate requests incorrectly blocked
	FalseNegatives int `json:"false_negatives"` // Attacks incorrectly allowed
}

// Total returns the number of classified requests.
func (cm ConfusionMatrix) Total() int {
	return cm.TruePositives + cm.TrueNegatives + cm.FalsePositives + cm.FalseNegatives
}

// CategoryMetric holds attack figures for one payload category.
type CategoryMetric struct {
	Category      string  `json:"category"`
	Total         int     `json:"total"`
	Blocked       int     `json:"blocked"`
	Bypassed      int     `json:"bypassed"`
	DetectionRate float64 `json:"detection_rate"`
}

// Accuracy is the set of derived figures for one run. Rates are on a
// 0-1 scale.
type Accuracy struct {
	Matrix ConfusionMatrix `json:"confusion_matrix"`

	DetectionRate     float64 `json:"detection_rate"`      // TP/(TP+FN)
	FalsePositiveRate float64 `json:"false_positive_rate"` // FP/(FP+TN)
	Precision         float64 `json:"precision"`           // TP/(TP+FP)
	Specificity       float64 `json:"specificity"`         // TN/(TN+FP)

	F1Score          float64 `json:"f1_score"`
	F2Score          float64 `json:"f2_score"`
	BalancedAccuracy float64 `json:"balanced_accuracy"`
	MCC              float64 `json:"mcc"` // -1 to 1

	AvgLatencyMs float64 `json:"avg_latency_ms"`
	P50LatencyMs float64 `json:"p50_latency_ms"`
	P95LatencyMs float64 `json:"p95_latency_ms"`
	P99LatencyMs float64 `json:"p99_latency_ms"`
	ErrorRate    float64 `json:"error_rate"` // errors / all outcomes

	Categories []CategoryMetric `json:"categories"`
}

// Compute derives accuracy figures from outcomes. Transport failures always
// raise the error rate and enter the matrix the way policy counts them in
// analyzer.Stats: left out, or as blocked requests. A failed attack carries
// no category, so it is never part of the category figures.
func Compute(outcomes []traffic.Outcome, policy analyzer.ErrorPolicy) Accuracy {
	var a Accuracy
	var latencies []float64
	errors := 0
	cats := map[string]*CategoryMetric{}

	for _, o := range outcomes {
		if o.IsError() {
			errors++
			if policy != analyzer.ErrorPolicyBlocked {
				continue
			}
			if o.IsAttack() {
				a.Matrix.TruePositives++
			} else {
				a.Matrix.FalsePositives++
			}
			continue
		}
		if o.LatencyMs > 0 {
			latencies = append(latencies, o.LatencyMs)
		}
		blocked := o.Blocked()
		if !o.IsAttack() {
			if blocked {
				a.Matrix.FalsePositives++
			} else {
				a.Matrix.TrueNegatives++
			}
			continue
		}

		cm := cats[o.Category]
		if cm == nil {
			cm = &CategoryMetric{Category: o.Category}
			cats[o.Category] = cm
		}
		cm.Total++
		if blocked {
			a.Matrix.TruePositives++
			cm.Blocked++
		} else {
			a.Matrix.FalseNegatives++
			cm.Bypassed++
		}
	}

	a.primary()
	a.balanced()
	a.latency(latencies)
	if len(outcomes) > 0 {
		a.ErrorRate = float64(errors) / float64(len(outcomes))
	}

	a.Categories = make([]CategoryMetric, 0, len(cats))
	for _, cm := range cats {
		if cm.Total > 0 {
			cm.DetectionRate = float64(cm.Blocked) / float64(cm.Total)
		}
		a.Categories = append(a.Categories, *cm)
	}
	sort.Slice(a.Categories, func(i, j int) bool {
		return a.Categories[i].Category < a.Categories[j].Category
	})
	return a
}

func (a *Accuracy) primary() {
	tp := float64(a.Matrix.TruePositives)
	tn := float64(a.Matrix.TrueNegatives)
	fp := float64(a.Matrix.FalsePositives)
	fn := float64(a.Matrix.FalseNegatives)

	if tp+fn > 0 {
		a.DetectionRate = tp / (tp + fn)
	}
	if fp+tn > 0 {
		a.FalsePositiveRate = fp / (fp + tn)
	}
	if tp+fp > 0 {
		a.Precision = tp / (tp + fp)
	}
	if tn+fp > 0 {
		a.Specificity = tn / (tn + fp)
	}
}

func (a *Accuracy) balanced() {
	p, r := a.Precision, a.DetectionRate
	if p+r > 0 {
		a.F1Score = 2 * p * r / (p + r)
	}
	// F2 weights recall over precision (beta = 2).
	const betaSq = 4.0
	if betaSq*p+r > 0 {
		a.F2Score = (1 + betaSq) * p * r / (betaSq*p + r)
	}
	a.BalancedAccuracy = (a.DetectionRate + a.Specificity) / 2

	tp := float64(a.Matrix.TruePositives)
	tn := float64(a.Matrix.TrueNegatives)
	fp := float64(a.Matrix.FalsePositives)
	fn := float64(a.Matrix.FalseNegatives)
	denom := math.Sqrt((tp + fp) * (tp + fn) * (tn + fp) * (tn + fn))
	if denom > 0 {
		a.MCC = (tp*tn - fp*fn) / denom
	}
}

func (a *Accuracy) latency(values []float64) {
	if len(values) == 0 {
		return
	}
	sort.Float64s(values)
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	a.AvgLatencyMs = sum / float64(len(values))
	a.P50LatencyMs = percentile(values, 50)
	a.P95LatencyMs = percentile(values, 95)
	a.P99LatencyMs = percentile(values, 99)
}

// percentile uses the nearest-rank method on sorted values.
func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(float64(p)/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
