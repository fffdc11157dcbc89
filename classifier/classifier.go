package classifier

import (
	"math"
	"regexp"
	"strings"
)

// Tier is the coarse difficulty bucket produced by the classifier.
type Tier string

const (
	TierTrivial  Tier = "trivial"
	TierSimple   Tier = "simple"
	TierModerate Tier = "moderate"
	TierComplex  Tier = "complex"
	TierExpert   Tier = "expert"
)

var tiersByRank = [...]Tier{TierTrivial, TierSimple, TierModerate, TierComplex, TierExpert}

// Method records which computation path produced a Result.
type Method string

const (
	MethodHeuristic Method = "heuristic"
	MethodLearned   Method = "learned"
)

// Features is the 15-value normalized feature vector used to classify
// prompt complexity.
type Features struct {
	CharCount            float64
	WordCount            float64
	SentenceCount        float64
	AvgWordLength        float64
	AvgSentenceLength    float64
	TypeTokenRatio       float64
	CodeIndicator        float64
	QuestionDepth        float64
	StructuralComplexity float64
	TechDensity          float64
	ReasoningDensity     float64
	Specificity          float64
	PriorReference       float64
	NumericalDensity     float64
	LargeNumbers         float64
}

// weights are the per-feature heuristic weights. Order matches the
// Features struct field order; they sum to 1.0.
var weights = Features{
	CharCount:            0.10,
	WordCount:            0.08,
	SentenceCount:        0.05,
	AvgWordLength:        0.05,
	AvgSentenceLength:    0.05,
	TypeTokenRatio:       0.03,
	CodeIndicator:        0.15,
	QuestionDepth:        0.08,
	StructuralComplexity: 0.06,
	TechDensity:          0.12,
	ReasoningDensity:     0.10,
	Specificity:          0.05,
	PriorReference:       0.02,
	NumericalDensity:     0.03,
	LargeNumbers:         0.03,
}

// Result is the classifier's full output.
type Result struct {
	Tier             Tier
	Score            int // 0-100
	Confidence       float64
	Intent           string
	IntentConfidence float64
	Features         Features
	Method           Method
}

// Predictor is the learned-path contract: a 5-way probability distribution
// over {trivial, simple, moderate, complex, expert} given the feature
// vector. Loading a Predictor is the caller's responsibility (best-effort,
// at startup); Predict errors fall back silently to the heuristic path.
type Predictor interface {
	Predict(f Features) ([5]float64, error)
}

// Classifier computes Results from prompt text.
type Classifier struct {
	predictor Predictor
}

// New creates a Classifier. predictor may be nil, in which case every
// Classify call uses the heuristic path.
func New(predictor Predictor) *Classifier {
	return &Classifier{predictor: predictor}
}

var (
	sentenceSplit  = regexp.MustCompile(`[.!?]+`)
	wordSplit      = regexp.MustCompile(`\s+`)
	fencedCode     = regexp.MustCompile("```")
	inlineCode     = regexp.MustCompile("`[^`]+`")
	bulletOrNumber = regexp.MustCompile(`(?m)^\s*([-*+]|\d+[.)])\s+`)
	digitRun       = regexp.MustCompile(`\d+`)
)

// Classify is a pure function from prompt text to Result.
func (c *Classifier) Classify(prompt string) Result {
	f := extractFeatures(prompt)

	var tier Tier
	var score int
	var confidence float64
	method := MethodHeuristic

	if c.predictor != nil {
		if probs, err := c.predictor.Predict(f); err == nil {
			idx, maxProb := argmax5(probs)
			tier = tiersByRank[idx]
			score = int(math.Round(maxProb * 100))
			confidence = maxProb
			method = MethodLearned
		}
	}

	if method == MethodHeuristic {
		tier, score = heuristicTier(f)
		confidence = 0.65
	}

	intent, intentScore, intentConfidence := classifyIntent(prompt)
	_ = intentScore

	return Result{
		Tier:             tier,
		Score:            score,
		Confidence:       confidence,
		Intent:           intent,
		IntentConfidence: intentConfidence,
		Features:         f,
		Method:           method,
	}
}

func heuristicTier(f Features) (Tier, int) {
	sum := f.CharCount*weights.CharCount +
		f.WordCount*weights.WordCount +
		f.SentenceCount*weights.SentenceCount +
		f.AvgWordLength*weights.AvgWordLength +
		f.AvgSentenceLength*weights.AvgSentenceLength +
		f.TypeTokenRatio*weights.TypeTokenRatio +
		f.CodeIndicator*weights.CodeIndicator +
		f.QuestionDepth*weights.QuestionDepth +
		f.StructuralComplexity*weights.StructuralComplexity +
		f.TechDensity*weights.TechDensity +
		f.ReasoningDensity*weights.ReasoningDensity +
		f.Specificity*weights.Specificity +
		f.PriorReference*weights.PriorReference +
		f.NumericalDensity*weights.NumericalDensity +
		f.LargeNumbers*weights.LargeNumbers

	score := int(math.Round(clamp01(sum) * 100))

	switch {
	case score <= 10:
		return TierTrivial, score
	case score <= 25:
		return TierSimple, score
	case score <= 50:
		return TierModerate, score
	case score <= 75:
		return TierComplex, score
	default:
		return TierExpert, score
	}
}

func extractFeatures(prompt string) Features {
	trimmed := strings.TrimSpace(prompt)
	words := wordSplit.Split(trimmed, -1)
	if trimmed == "" {
		words = nil
	}
	sentences := sentenceSplit.Split(trimmed, -1)
	sentenceCount := 0
	for _, s := range sentences {
		if strings.TrimSpace(s) != "" {
			sentenceCount++
		}
	}

	wordCount := len(words)
	charCount := len([]rune(trimmed))

	totalWordLen := 0
	unique := make(map[string]struct{}, wordCount)
	for _, w := range words {
		lw := strings.ToLower(w)
		totalWordLen += len([]rune(w))
		unique[lw] = struct{}{}
	}
	avgWordLen := 0.0
	if wordCount > 0 {
		avgWordLen = float64(totalWordLen) / float64(wordCount)
	}
	avgSentenceLen := 0.0
	if sentenceCount > 0 {
		avgSentenceLen = float64(wordCount) / float64(sentenceCount)
	}
	typeTokenRatio := 0.0
	if wordCount > 0 {
		typeTokenRatio = float64(len(unique)) / float64(wordCount)
	}

	codeIndicator := 0.0
	if fencedCode.MatchString(trimmed) {
		codeIndicator = 1.0
	} else if inlineCode.MatchString(trimmed) {
		codeIndicator = 0.5
	}

	questionMarks := strings.Count(trimmed, "?")
	structuralLines := len(bulletOrNumber.FindAllString(trimmed, -1))

	lowered := strings.ToLower(trimmed)
	techHits := countHits(lowered, techJargon)
	reasoningHits := countHits(lowered, reasoningPhrases)

	specificity := 0.0
	if countHits(lowered, constraintKeywords) > 0 {
		specificity += 0.5
	}
	if countHits(lowered, formatKeywords) > 0 {
		specificity += 0.5
	}

	priorRef := 0.0
	if countHits(lowered, priorReferencePhrases) > 0 {
		priorRef = 1.0
	}

	digitRuns := digitRun.FindAllString(trimmed, -1)
	largeNumber := 0.0
	for _, d := range digitRuns {
		if len(d) > 4 || parseNonNegInt(d) > 1000 {
			largeNumber = 1.0
			break
		}
	}

	return Features{
		CharCount:            capNorm(float64(charCount), 5000),
		WordCount:            capNorm(float64(wordCount), 1000),
		SentenceCount:        capNorm(float64(sentenceCount), 50),
		AvgWordLength:        capNorm(avgWordLen, 12),
		AvgSentenceLength:    capNorm(avgSentenceLen, 40),
		TypeTokenRatio:       clamp01(typeTokenRatio),
		CodeIndicator:        codeIndicator,
		QuestionDepth:        capNorm(float64(questionMarks), 3),
		StructuralComplexity: capNorm(float64(structuralLines), 5),
		TechDensity:          capNorm(float64(techHits), 5),
		ReasoningDensity:     capNorm(float64(reasoningHits), 3),
		Specificity:          specificity,
		PriorReference:       priorRef,
		NumericalDensity:     capNorm(float64(len(digitRuns)), 10),
		LargeNumbers:         largeNumber,
	}
}

func classifyIntent(prompt string) (intent string, score float64, confidence float64) {
	lowered := strings.ToLower(prompt)
	scores := make(map[string]float64, len(intentKeywords))
	total := 0.0
	best := "general"
	bestScore := 0.0

	for cat, kws := range intentKeywords {
		s := float64(countHits(lowered, kws))
		for _, pattern := range intentRegexes[cat] {
			if re, err := regexp.Compile(pattern); err == nil && re.MatchString(prompt) {
				s += 2
			}
		}
		scores[cat] = s
		total += s
		if s > bestScore {
			bestScore = s
			best = cat
		}
	}

	if bestScore <= 0 {
		return "general", 0, confidenceOrDefault(0, total)
	}
	return best, bestScore, confidenceOrDefault(bestScore, total)
}

func confidenceOrDefault(winner, total float64) float64 {
	if total <= 0 {
		return 1.0
	}
	return winner / total
}

func countHits(haystack string, needles []string) int {
	n := 0
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			n++
		}
	}
	return n
}

func capNorm(v, cap float64) float64 {
	if cap <= 0 {
		return 0
	}
	return clamp01(v / cap)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func argmax5(probs [5]float64) (int, float64) {
	idx := 0
	max := probs[0]
	for i := 1; i < 5; i++ {
		if probs[i] > max {
			max = probs[i]
			idx = i
		}
	}
	return idx, max
}

func parseNonNegInt(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
		if n > 1_000_000 {
			return n
		}
	}
	return n
}
