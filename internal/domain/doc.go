// Package domain contains the core entities of the scheduling engine: cards
// and their scheduling projection, decks, grades and review logs. It has no
// knowledge of storage or transport.
package domain
