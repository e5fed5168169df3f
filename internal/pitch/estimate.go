// SPDX-License-Identifier: MIT
package pitch

import (
	"fmt"
	"time"
)

// Estimate is one emitted observation.
type Estimate struct {
	Seq       uint64    `json:"seq"`       // 1 for the first emitted estimate
	Time      time.Time `json:"time"`      // when the estimate was emitted
	Frequency float64   `json:"frequency"` // Hz, a multiple of the bin resolution
	Number    float64   `json:"number"`    // continuous note number
	Nearest   int       `json:"nearest"`   // closest note number
	Note      string    `json:"note"`      // name of Nearest, e.g. "A2"
	Cents     int       `json:"cents"`     // deviation from Nearest
}

// String renders the console report line, e.g.
//
//	freq: 110.234 Hz    note: A2   +3 cents
func (e Estimate) String() string {
	return fmt.Sprintf("freq: %7.3f Hz    note: %-3.3s %+3d cents", e.Frequency, e.Note, e.Cents)
}
