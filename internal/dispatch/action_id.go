// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"
)

const actionIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var actionIDPattern = regexp.MustCompile(`^ACT-\d{4}-[A-Z0-9]{5}$`)

// NewActionID generates a fresh action identifier of the form ACT-YYYY-XXXXX
func NewActionID() string {
	return newActionIDAt(time.Now())
}

func newActionIDAt(now time.Time) string {
	suffix := make([]byte, 5)
	max := big.NewInt(int64(len(actionIDAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			panic(fmt.Sprintf("action id: reading random source: %v", err))
		}
		suffix[i] = actionIDAlphabet[n.Int64()]
	}
	return fmt.Sprintf("ACT-%04d-%s", now.Year(), string(suffix))
}

// ValidActionID reports whether id has the ACT-YYYY-XXXXX shape
func ValidActionID(id string) bool {
	return actionIDPattern.MatchString(id)
}
