// Package intent extracts structured swap requests from free text. The
// Extractor interface keeps the mechanism swappable: HTTPExtractor defers
// to an external classification service, PatternExtractor recognizes
// common phrasings locally.
package intent
