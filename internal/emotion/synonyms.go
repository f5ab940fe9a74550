// Package emotion maps feeling vocabulary onto the emotion labels assigned
// to passages at ingestion, and serves label-based passage lookup.
package emotion

import (
	"sort"
	"strings"
)

// synonyms maps a feeling word to the tag labels it should search under.
// Keys and values are lowercase. A word absent from the map searches under
// itself.
var synonyms = map[string][]string{
	"depression":  {"sorrow", "despair", "sadness", "grief", "discouragement", "anguish", "hopelessness"},
	"depressed":   {"sorrow", "despair", "sadness", "grief", "discouragement"},
	"sad":         {"sadness", "sorrow", "grief", "mourning"},
	"sadness":     {"sadness", "sorrow", "grief", "mourning"},
	"grief":       {"grief", "sorrow", "mourning", "lament"},
	"grieving":    {"grief", "sorrow", "mourning", "lament"},
	"mourning":    {"mourning", "grief", "sorrow", "lament"},
	"anxious":     {"anxiety", "worry", "fear", "unease"},
	"anxiety":     {"anxiety", "worry", "fear", "unease"},
	"worried":     {"worry", "anxiety", "fear", "concern"},
	"worry":       {"worry", "anxiety", "fear", "concern"},
	"stressed":    {"anxiety", "worry", "burden", "weariness"},
	"stress":      {"anxiety", "worry", "burden", "weariness"},
	"overwhelmed": {"burden", "weariness", "anguish", "despair"},
	"afraid":      {"fear", "dread", "terror", "anxiety"},
	"fear":        {"fear", "dread", "terror", "anxiety"},
	"fearful":     {"fear", "dread", "terror", "anxiety"},
	"scared":      {"fear", "dread", "terror"},
	"terrified":   {"terror", "fear", "dread"},
	"angry":       {"anger", "wrath", "indignation", "fury"},
	"anger":       {"anger", "wrath", "indignation", "fury"},
	"furious":     {"fury", "anger", "wrath"},
	"bitter":      {"bitterness", "anger", "resentment"},
	"resentful":   {"resentment", "bitterness", "anger"},
	"lonely":      {"loneliness", "isolation", "abandonment"},
	"loneliness":  {"loneliness", "isolation", "abandonment"},
	"alone":       {"loneliness", "isolation", "abandonment"},
	"abandoned":   {"abandonment", "loneliness", "rejection"},
	"rejected":    {"rejection", "abandonment", "shame"},
	"ashamed":     {"shame", "guilt", "regret"},
	"shame":       {"shame", "guilt", "regret"},
	"guilty":      {"guilt", "shame", "remorse", "regret"},
	"guilt":       {"guilt", "shame", "remorse", "regret"},
	"regret":      {"regret", "remorse", "guilt"},
	"hopeless":    {"hopelessness", "despair", "discouragement"},
	"despair":     {"despair", "hopelessness", "anguish"},
	"discouraged": {"discouragement", "despair", "weariness"},
	"doubt":       {"doubt", "unbelief", "confusion"},
	"doubting":    {"doubt", "unbelief", "confusion"},
	"confused":    {"confusion", "doubt", "uncertainty"},
	"lost":        {"confusion", "despair", "wandering"},
	"tired":       {"weariness", "exhaustion", "burden"},
	"weary":       {"weariness", "exhaustion", "burden"},
	"exhausted":   {"exhaustion", "weariness", "burden"},
	"happy":       {"joy", "gladness", "delight", "rejoicing"},
	"happiness":   {"joy", "gladness", "delight", "rejoicing"},
	"joyful":      {"joy", "gladness", "rejoicing"},
	"joy":         {"joy", "gladness", "delight", "rejoicing"},
	"grateful":    {"gratitude", "thanksgiving", "praise"},
	"thankful":    {"thanksgiving", "gratitude", "praise"},
	"gratitude":   {"gratitude", "thanksgiving", "praise"},
	"hopeful":     {"hope", "expectation", "trust"},
	"hope":        {"hope", "expectation", "trust"},
	"peaceful":    {"peace", "rest", "calm", "contentment"},
	"peace":       {"peace", "rest", "calm", "contentment"},
	"calm":        {"calm", "peace", "rest"},
	"content":     {"contentment", "peace", "satisfaction"},
	"love":        {"love", "compassion", "kindness"},
	"loved":       {"love", "compassion", "belonging"},
	"unloved":     {"rejection", "loneliness", "abandonment"},
	"jealous":     {"jealousy", "envy", "covetousness"},
	"envy":        {"envy", "jealousy", "covetousness"},
	"tempted":     {"temptation", "desire", "weakness"},
	"temptation":  {"temptation", "desire", "weakness"},
	"forgiveness": {"forgiveness", "mercy", "reconciliation"},
	"betrayed":    {"betrayal", "grief", "anger"},
	"hurt":        {"pain", "sorrow", "anguish"},
	"pain":        {"pain", "suffering", "anguish"},
	"suffering":   {"suffering", "pain", "affliction", "anguish"},
	"sick":        {"affliction", "suffering", "weakness"},
	"grieved":     {"grief", "sorrow", "anguish"},
	"courage":     {"courage", "strength", "boldness"},
	"brave":       {"courage", "strength", "boldness"},
	"weak":        {"weakness", "frailty", "dependence"},
	"doubtful":    {"doubt", "uncertainty", "unbelief"},
	"insecure":    {"insecurity", "fear", "doubt"},
	"unworthy":    {"shame", "guilt", "insecurity"},
}

// Expand maps a feeling word to the labels to search under. The input is
// lowercased and trimmed before lookup. An unknown word expands to itself,
// so expansion never loses the caller's term.
func Expand(feeling string) []string {
	normalized := strings.ToLower(strings.TrimSpace(feeling))
	if normalized == "" {
		return nil
	}
	if labels, ok := synonyms[normalized]; ok {
		out := make([]string, len(labels))
		copy(out, labels)
		return out
	}
	return []string{normalized}
}

// Terms returns the known feeling words in sorted order. Used by the
// vocabulary listing endpoint and CLI.
func Terms() []string {
	terms := make([]string, 0, len(synonyms))
	for term := range synonyms {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}
