package engine

import (
	"sync"
	"time"

	"shelfwatch/internal/model"
)

// methodPreferenceOrder fixes the tie-break when several strategies have
// equal historical counts: earlier cascade position wins.
var methodPreferenceOrder = []model.MatchMethod{
	model.MethodExactURL,
	model.MethodNormalizedURL,
	model.MethodProductCode,
	model.MethodExactTitlePrice,
	model.MethodFuzzyTitlePrice,
	model.MethodImageOverlap,
}

// Learner accumulates resolution outcomes for one retailer's batch and folds
// them into the retailer profile at commit time. It is an online algorithm:
// updating a profile never requires re-reading historical records, and the
// accumulator is the only serialization point during parallel resolution.
type Learner struct {
	mu              sync.Mutex
	methodCounts    map[model.MatchMethod]int
	matched         int
	stableURLs      int
	imageSamples    int
	imageOverlapSum float64
}

// NewLearner creates an empty accumulator for one batch.
func NewLearner() *Learner {
	return &Learner{
		methodCounts: make(map[model.MatchMethod]int),
	}
}

// Observe stages one resolution outcome. Confirmed-new results carry no
// match evidence and leave the accumulator untouched; degraded records that
// failed to match therefore never drag the URL stability score down.
func (l *Learner) Observe(result *model.ResolutionResult) {
	if result == nil || !result.IsMatch() {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.matched++
	l.methodCounts[result.Method]++

	if result.URLOutcome == model.URLStable || result.URLOutcome == model.URLNormalized {
		l.stableURLs++
	}

	if result.Method == model.MethodImageOverlap {
		l.imageSamples++
		l.imageOverlapSum += result.ImageOverlap
	}
}

// Matched returns the number of staged match outcomes.
func (l *Learner) Matched() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.matched
}

// Apply folds the staged batch into the profile via weighted incremental
// averaging. Sample size is monotonically non-decreasing and scores are never
// overwritten wholesale, so one noisy batch cannot erase historical signal.
// The caller persists the profile; Apply only mutates it in memory.
func (l *Learner) Apply(profile *model.RetailerMatchProfile) {
	l.mu.Lock()
	defer l.mu.Unlock()

	profile.LastUpdated = time.Now()

	if l.matched == 0 {
		return
	}

	newSampleSize := profile.SampleSize + l.matched
	profile.URLStabilityScore = (profile.URLStabilityScore*float64(profile.SampleSize) + float64(l.stableURLs)) / float64(newSampleSize)
	profile.SampleSize = newSampleSize

	if l.imageSamples > 0 {
		newImageSamples := profile.ImageSampleSize + l.imageSamples
		profile.ImageConsistencyScore = (profile.ImageConsistencyScore*float64(profile.ImageSampleSize) + l.imageOverlapSum) / float64(newImageSamples)
		profile.ImageSampleSize = newImageSamples
	}

	if profile.MethodCounts == nil {
		profile.MethodCounts = make(map[model.MatchMethod]int)
	}
	for method, count := range l.methodCounts {
		profile.MethodCounts[method] += count
	}

	profile.PreferredMethod = preferredMethod(profile.MethodCounts)
}

// preferredMethod picks the strategy with the highest historical match
// count. Batch counts were already folded into the historical base, so a
// single batch cannot flip the preference away from a large history.
func preferredMethod(counts map[model.MatchMethod]int) model.MatchMethod {
	best := model.MethodExactURL
	bestCount := -1
	for _, method := range methodPreferenceOrder {
		if c := counts[method]; c > bestCount {
			best = method
			bestCount = c
		}
	}
	return best
}
