package service

import (
	"regexp"
	"time"

	"github.com/tidwall/gjson"
)

// defaultQuotaResetDelay is assumed when a 429 carries no usable reset hint.
const defaultQuotaResetDelay = time.Minute

var retryInRegex = regexp.MustCompile(`[Rr]etry in (\d+(?:\.\d+)?)s`)

// ParseQuotaResetTime extracts the upstream-reported quota reset time from a
// 429 error body. Checked in order: google.rpc.RetryInfo retryDelay,
// metadata.quotaResetDelay, then a "retry in Xs" message match. Returns nil
// when the body carries no usable hint.
func ParseQuotaResetTime(body []byte) *time.Time {
	raw := string(body)

	for _, detail := range gjson.Get(raw, "error.details").Array() {
		if v := detail.Get("retryDelay"); v.Exists() {
			if dur, err := time.ParseDuration(v.String()); err == nil {
				t := time.Now().Add(dur)
				return &t
			}
		}
		if v := detail.Get("metadata.quotaResetDelay"); v.Exists() {
			if dur, err := time.ParseDuration(v.String()); err == nil {
				t := time.Now().Add(dur)
				return &t
			}
		}
	}

	if matches := retryInRegex.FindStringSubmatch(raw); len(matches) == 2 {
		if dur, err := time.ParseDuration(matches[1] + "s"); err == nil {
			t := time.Now().Add(dur)
			return &t
		}
	}

	return nil
}

// QuotaResetTimeOrDefault resolves the reset time for a 429, falling back to
// now + defaultQuotaResetDelay when the body gives no hint.
func QuotaResetTimeOrDefault(body []byte) time.Time {
	if t := ParseQuotaResetTime(body); t != nil {
		return *t
	}
	return time.Now().Add(defaultQuotaResetDelay)
}
