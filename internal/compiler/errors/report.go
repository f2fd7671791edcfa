package errors

import (
	"encoding/json"
	"fmt"
	"io"
)

// Report is the machine-readable outcome of generating one document
type Report struct {
	File        string    `json:"file"`
	OK          bool      `json:"ok"`
	Errors      int       `json:"errors"`
	Warnings    int       `json:"warnings"`
	Diagnostics ErrorList `json:"diagnostics"`
}

// NewReport combines the failure of a run, if any, with its warnings
func NewReport(file string, err error, warnings ErrorList) *Report {
	failure := Flatten(err)
	diagnostics := make(ErrorList, 0, len(failure)+len(warnings))
	diagnostics = append(append(diagnostics, failure...), warnings...)
	return &Report{
		File:        file,
		OK:          !diagnostics.HasErrors(),
		Errors:      diagnostics.Count(SeverityError),
		Warnings:    diagnostics.Count(SeverityWarning),
		Diagnostics: diagnostics,
	}
}

// Failed reports whether the run should exit non-zero. With strict,
// warnings fail it too.
func (r *Report) Failed(strict bool) bool {
	return r.Diagnostics.HasErrors() || (strict && r.Diagnostics.HasWarnings())
}

func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteCompact writes one line per diagnostic
func (r *Report) WriteCompact(w io.Writer) error {
	for _, d := range r.Diagnostics {
		if _, err := fmt.Fprintln(w, d.Compact()); err != nil {
			return err
		}
	}
	return nil
}
