// Package similarity implements the edit-distance layer of the linkage engine.
//
// Every score produced here is a float in [0,1] where 1.0 means identical.
// Raw EditDistance is case-sensitive; Ratio and everything built on it fold
// case first. ContainsFuzzy and TextSpan provide the word-window alignment
// used to locate a short label inside a longer free-text passage.
package similarity
