package triage

import (
	"fmt"
	"strings"
)

// Level is the coarse priority bucket derived from a numeric triage score.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// Score thresholds for level assignment.
const (
	highThreshold   = 60
	mediumThreshold = 30
)

// Vitals is a single set of measurements taken at check-in.
// Range validation (e.g. rejecting a 300°F temperature) happens upstream;
// the scorer accepts any numeric values and stays total.
type Vitals struct {
	TemperatureF float64 `json:"temperature_f"`
	HeartRate    int     `json:"heart_rate"`
	SystolicBP   int     `json:"systolic_bp"`
	DiastolicBP  int     `json:"diastolic_bp"`
	PainLevel    int     `json:"pain_level"` // 0-10
}

// Result is the outcome of scoring one check-in. It is a value object:
// identical input always produces an identical Result.
type Result struct {
	Score   int      `json:"score"`
	Level   Level    `json:"level"`
	Factors []string `json:"factors"`
}

// Point values per factor tier. Blood pressure reuses the critical systolic
// constant for diastolic-triggered critical readings as well; the asymmetry
// is intentional-looking but unconfirmed, so it is kept as-is.
const (
	tempCriticalPts = 30
	tempSeriousPts  = 20
	tempModeratePts = 10

	hrCriticalPts = 25
	hrSeriousPts  = 15
	hrModeratePts = 5

	bpCriticalPts = 40
	bpSeriousPts  = 25
	bpModeratePts = 10

	painSeverePts   = 20
	painModeratePts = 10
	painMildPts     = 3

	symptomCriticalPts = 40
	symptomSeriousPts  = 25
)

// Symptom keyword sets. Matching is case-insensitive substring search;
// the critical set is checked first and wins outright.
var criticalKeywords = []string{
	"chest pain",
	"difficulty breathing",
	"shortness of breath",
	"unconscious",
	"severe bleeding",
	"stroke",
	"heart attack",
	"choking",
	"anaphylaxis",
}

var seriousKeywords = []string{
	"broken bone",
	"seizure",
	"deep cut",
	"head injury",
	"high fever",
	"severe pain",
	"burn",
	"allergic reaction",
}

// Score converts vitals and free-text symptoms into a triage result using
// additive point accumulation across five independent factors. Each factor
// contributes at most once, from its single highest matching tier.
func Score(v Vitals, symptoms string) Result {
	score := 0
	var factors []string

	if pts, desc := scoreTemperature(v.TemperatureF); pts > 0 {
		score += pts
		factors = append(factors, desc)
	}
	if pts, desc := scoreHeartRate(v.HeartRate); pts > 0 {
		score += pts
		factors = append(factors, desc)
	}
	if pts, desc := scoreBloodPressure(v.SystolicBP, v.DiastolicBP); pts > 0 {
		score += pts
		factors = append(factors, desc)
	}
	if pts, desc := scorePain(v.PainLevel); pts > 0 {
		score += pts
		factors = append(factors, desc)
	}
	if pts, desc := scoreSymptoms(symptoms); pts > 0 {
		score += pts
		factors = append(factors, desc)
	}

	return Result{
		Score:   score,
		Level:   levelFor(score),
		Factors: factors,
	}
}

func levelFor(score int) Level {
	switch {
	case score >= highThreshold:
		return LevelHigh
	case score >= mediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

func scoreTemperature(t float64) (int, string) {
	switch {
	case t >= 103 || t <= 95:
		return tempCriticalPts, fmt.Sprintf("critical temperature: %.1f°F", t)
	case t >= 101.5 || t <= 96:
		return tempSeriousPts, fmt.Sprintf("serious temperature: %.1f°F", t)
	case t >= 100 || t <= 97:
		return tempModeratePts, fmt.Sprintf("elevated temperature: %.1f°F", t)
	}
	return 0, ""
}

func scoreHeartRate(hr int) (int, string) {
	switch {
	case hr >= 140 || hr <= 40:
		return hrCriticalPts, fmt.Sprintf("critical heart rate: %d bpm", hr)
	case hr >= 120 || hr <= 50:
		return hrSeriousPts, fmt.Sprintf("serious heart rate: %d bpm", hr)
	case hr > 100 || hr < 60:
		return hrModeratePts, fmt.Sprintf("abnormal heart rate: %d bpm", hr)
	}
	return 0, ""
}

func scoreBloodPressure(systolic, diastolic int) (int, string) {
	sysDelta := abs(systolic - 120)
	diaDelta := abs(diastolic - 80)

	switch {
	case sysDelta >= 40 || diaDelta >= 30:
		return bpCriticalPts, fmt.Sprintf("critical blood pressure: %d/%d", systolic, diastolic)
	case sysDelta >= 25 || diaDelta >= 20:
		return bpSeriousPts, fmt.Sprintf("serious blood pressure: %d/%d", systolic, diastolic)
	case sysDelta >= 10 || diaDelta >= 10:
		return bpModeratePts, fmt.Sprintf("abnormal blood pressure: %d/%d", systolic, diastolic)
	}
	return 0, ""
}

func scorePain(level int) (int, string) {
	switch {
	case level >= 8:
		return painSeverePts, fmt.Sprintf("severe pain reported: %d/10", level)
	case level >= 5:
		return painModeratePts, fmt.Sprintf("moderate pain reported: %d/10", level)
	case level >= 1:
		return painMildPts, fmt.Sprintf("mild pain reported: %d/10", level)
	}
	return 0, ""
}

func scoreSymptoms(symptoms string) (int, string) {
	text := strings.ToLower(symptoms)

	for _, kw := range criticalKeywords {
		if strings.Contains(text, kw) {
			return symptomCriticalPts, "critical symptom reported: " + kw
		}
	}
	for _, kw := range seriousKeywords {
		if strings.Contains(text, kw) {
			return symptomSeriousPts, "serious symptom reported: " + kw
		}
	}
	return 0, ""
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
