package payment

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Verdict classifies a bank notification body for the manual reviewer.
type Verdict string

const (
	VerdictOK            Verdict = "ok"
	VerdictMissingData   Verdict = "missing_data"
	VerdictReferenceUsed Verdict = "reference_used"
	VerdictLowConfidence Verdict = "low_confidence"
)

// Extraction is what the analyzer pulled out of a notification body.
type Extraction struct {
	Reference string
	Amount    decimal.Decimal
	Score     int
}

// Phrases that appear in real bank transfer notifications. Each match is
// worth one point.
var bankKeyPhrases = []string{
	"interac e-transfer",
	"you have received money",
	"deposit completed",
}

var (
	referenceRegex = regexp.MustCompile(`\b[A-Z0-9]{8,20}\b`)
	amountRegex    = regexp.MustCompile(`\$?\s?([0-9]+(?:\.[0-9]{2}))`)
)

// randomnessThreshold is the character-distribution entropy (bits) above
// which a reference looks machine-generated rather than typed by hand.
const randomnessThreshold = 2.8

// scoreCutoff is the minimum plausibility score for an "ok" verdict.
// The scoring is deliberately asymmetric: a missed legitimate payment
// costs a human another look, an auto-accepted fraud costs money.
const scoreCutoff = 4

// ExtractReference returns the first uppercase alphanumeric token of
// length 8-20 in the text, or "".
func ExtractReference(text string) string {
	return referenceRegex.FindString(strings.ToUpper(text))
}

// ExtractAmount returns the first currency-like decimal token in the text.
func ExtractAmount(text string) (decimal.Decimal, bool) {
	m := amountRegex.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Entropy computes the Shannon entropy of the character distribution.
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}
	var h float64
	for _, c := range counts {
		p := float64(c) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}

// LooksRandom reports whether the reference's entropy exceeds the
// randomness threshold.
func LooksRandom(reference string) bool {
	return Entropy(reference) > randomnessThreshold
}

func templateScore(body string) int {
	score := 0
	t := strings.ToLower(body)
	for _, phrase := range bankKeyPhrases {
		if strings.Contains(t, phrase) {
			score++
		}
	}
	return score
}

// Analyze extracts a reference and amount from a notification body and
// scores its plausibility against the expected total. usedFn answers
// whether a reference has already been consumed; the caller supplies it
// so the scoring stays a pure function of its inputs.
func Analyze(body string, expected decimal.Decimal, usedFn func(reference string) (bool, error)) (Extraction, Verdict, error) {
	ref := ExtractReference(body)
	amount, hasAmount := ExtractAmount(body)

	if ref == "" || !hasAmount {
		return Extraction{}, VerdictMissingData, nil
	}

	used, err := usedFn(ref)
	if err != nil {
		return Extraction{}, "", err
	}
	if used {
		return Extraction{Reference: ref, Amount: amount}, VerdictReferenceUsed, nil
	}

	score := templateScore(body)
	if LooksRandom(ref) {
		score += 2
	} else {
		score -= 3
	}
	if amount.Equal(expected) {
		score += 3
	} else {
		score -= 5
	}

	out := Extraction{Reference: ref, Amount: amount, Score: score}
	if score < scoreCutoff {
		return out, VerdictLowConfidence, nil
	}
	return out, VerdictOK, nil
}
