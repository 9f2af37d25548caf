package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	suggestionCutoff = 0.6
	maxSuggestions   = 3
)

// closeMatches returns up to maxSuggestions candidates similar to word, best first.
func closeMatches(word string, candidates []string) []string {
	type match struct {
		s     string
		ratio float64
	}
	w := strings.Split(strings.ToUpper(word), "")

	matches := make([]match, 0)
	for _, c := range candidates {
		m := difflib.NewMatcher(w, strings.Split(strings.ToUpper(c), ""))
		if m.QuickRatio() < suggestionCutoff {
			continue
		}
		if r := m.Ratio(); r >= suggestionCutoff {
			matches = append(matches, match{s: c, ratio: r})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].ratio > matches[j].ratio })

	out := make([]string, 0, maxSuggestions)
	for i := 0; i < len(matches) && i < maxSuggestions; i++ {
		out = append(out, matches[i].s)
	}
	return out
}

// unknownStudentError is returned for QR ids that match no student.
type unknownStudentError struct {
	qrID        string
	suggestions []string
}

func (err unknownStudentError) Error() string {
	msg := fmt.Sprintf("student %q not found", err.qrID)
	if len(err.suggestions) > 0 {
		msg += "; did you mean " + strings.Join(err.suggestions, ", ") + "?"
	}
	return msg
}

func (cli *commandLine) unknownStudent(ctx context.Context, qrID string) error {
	ids, err := cli.feeSvc.SortedStudentIDs(ctx)
	if err != nil {
		return err
	}
	return unknownStudentError{qrID: qrID, suggestions: closeMatches(qrID, ids)}
}
