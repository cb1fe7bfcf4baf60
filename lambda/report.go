package lambda

import (
	"fmt"
	"io"
)

// WriteFamilyReport writes one line per family fit: the family
// identifier, a tab and the annotated tree. With mark set, boundary
// families are prefixed with "@@ " so they are easy to grep out of a
// large report.
func WriteFamilyReport(w io.Writer, fits []*FamilyFit, mark bool) error {
	for _, fit := range fits {
		if mark && fit.Boundary {
			if _, err := io.WriteString(w, "@@ "); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", fit.ID, fit.Tree); err != nil {
			return err
		}
	}
	return nil
}

// WriteFamilyHTML writes the per-family fits as a plain HTML table.
func WriteFamilyHTML(w io.Writer, fits []*FamilyFit) error {
	if _, err := io.WriteString(w, "<html><body><table border=1>\n"); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "<tr><th>Family</th><th>Lambda</th><th>Score</th><th>Tree</th></tr>\n"); err != nil {
		return err
	}
	for _, fit := range fits {
		_, err := fmt.Fprintf(w, "<tr><td>%s</td><td>%s</td><td>%f</td><td>%s</td></tr>\n",
			fit.ID, joinFloats(fit.Rates), fit.Score, fit.Tree)
		if err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</table></body></html>\n")
	return err
}

// LogMembership logs the hard cluster assignment of every family,
// the cluster with the largest responsibility.
func (s *Session) LogMembership(memb Membership) {
	for i, row := range memb {
		best := 0
		for k, r := range row {
			if r > row[best] {
				best = k
			}
		}
		log.Noticef("family %s: cluster %d (responsibility %f)",
			s.Fams.Families[i].ID, best, row[best])
	}
}
