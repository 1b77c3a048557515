package billing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"nerdops/internal/logging"
)

// redactKeep is how many leading and trailing characters RedactKey leaves visible.
const redactKeep = 10

// Report is everything printed for a successful balance lookup.
type Report struct {
	APIKey   string
	Endpoint string
	Balance  *Balance
}

// FormatDollars renders integer cents as a dollar amount, e.g. 1234 -> "$12.34".
func FormatDollars(cents int64) string {
	sign := ""
	// Work in uint64 so math.MinInt64 does not overflow on negation.
	abs := uint64(cents)
	if cents < 0 {
		sign = "-"
		abs = uint64(-(cents + 1)) + 1
	}
	return fmt.Sprintf("%s$%d.%02d", sign, abs/100, abs%100)
}

// RedactKey shows the first and last ten characters of a credential.
// Credentials too short to hide anything are masked entirely. Keys that are
// not valid UTF-8 are cut on bytes so the visible ends stay byte-exact.
func RedactKey(key string) string {
	if !utf8.ValidString(key) {
		if len(key) <= 2*redactKeep {
			return strings.Repeat("*", len(key))
		}
		return key[:redactKeep] + "..." + key[len(key)-redactKeep:]
	}

	runes := []rune(key)
	if len(runes) <= 2*redactKeep {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:redactKeep]) + "..." + string(runes[len(runes)-redactKeep:])
}

// WriteReport prints the fixed-format balance report.
func WriteReport(w io.Writer, r Report) error {
	cents := int64(0)
	if r.Balance != nil {
		cents = r.Balance.Cents
	}

	var sb strings.Builder
	sb.WriteString("=== Credits Balance ===\n")
	sb.WriteString(fmt.Sprintf("API key:  %s\n", RedactKey(r.APIKey)))
	sb.WriteString(fmt.Sprintf("Endpoint: %s\n", r.Endpoint))
	sb.WriteString(fmt.Sprintf("Balance:  %s (%d cents)\n", FormatDollars(cents), cents))

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteFailure prints a failed lookup as a single line. Non-2xx responses
// show the status and the raw body.
func WriteFailure(w io.Writer, err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		_, werr := fmt.Fprintf(w, "Request failed: HTTP %d %s: %s\n",
			statusErr.StatusCode, statusErr.Status, statusErr.Body)
		return werr
	}
	_, werr := fmt.Fprintf(w, "Error: %v\n", err)
	return werr
}

// Run fetches the balance once and prints either the report or the failure.
// Lookup failures are printed, not returned; only write errors are returned.
func Run(ctx context.Context, client *Client, w io.Writer) error {
	balance, err := client.FetchBalance(ctx)
	if err != nil {
		logging.BillingWarn("Balance lookup failed: %v", err)
		return WriteFailure(w, err)
	}
	logging.Billing("Balance lookup succeeded: %d cents", balance.Cents)
	return WriteReport(w, Report{
		APIKey:   client.APIKey(),
		Endpoint: client.Endpoint(),
		Balance:  balance,
	})
}
