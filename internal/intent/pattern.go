// ABOUTME: Local pattern-based intent extractor
// ABOUTME: Recognizes common swap phrasings without a remote service

package intent

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Recognized phrasings, after uppercasing and stripping a leading "SWAP":
//
//	10 TON TO USDT
//	10 TON USDT
//	TON USDT 10.5
//	TON TO USDT 10.5
var (
	amountFirstRe = regexp.MustCompile(`^(\d+\.?\d*)\s+([A-Z0-9]+)\s+(?:TO\s+|FOR\s+)?([A-Z0-9]+)$`)
	amountLastRe  = regexp.MustCompile(`^([A-Z0-9]+)\s+(?:TO\s+|FOR\s+)?([A-Z0-9]+)\s+(\d+\.?\d*)$`)
)

// PatternExtractor extracts swap intents with regular expressions. It is
// the default extractor when no remote classifier is configured.
type PatternExtractor struct{}

// NewPatternExtractor returns a pattern-based extractor.
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{}
}

// Extract parses the text against the known phrasings.
func (p *PatternExtractor) Extract(ctx context.Context, text string) (*SwapIntent, error) {
	norm := strings.ToUpper(strings.TrimSpace(text))
	norm = strings.TrimPrefix(norm, "SWAP ")
	norm = strings.Join(strings.Fields(norm), " ")

	var in, out, amountStr string
	if m := amountFirstRe.FindStringSubmatch(norm); m != nil {
		amountStr, in, out = m[1], m[2], m[3]
	} else if m := amountLastRe.FindStringSubmatch(norm); m != nil {
		in, out, amountStr = m[1], m[2], m[3]
	} else {
		return nil, ErrNoIntent
	}

	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil || amount <= 0 || math.IsInf(amount, 0) {
		return nil, ErrNoIntent
	}
	if in == out {
		return nil, ErrNoIntent
	}

	return &SwapIntent{
		InputSymbol:  in,
		OutputSymbol: out,
		Amount:       amount,
	}, nil
}
